package service

import gonanoid "github.com/matoous/go-nanoid/v2"

// Alphabet is the 62-symbol set short codes are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodeLength is the length of generated short codes.
const DefaultCodeLength = 6

// CodeGenerator produces candidate short codes. The generator is injected
// into the service so tests can substitute a deterministic sequence.
type CodeGenerator interface {
	Generate(length int) (string, error)
}

// RandomCodeGenerator draws codes uniformly from Alphabet using a
// cryptographically secure source.
type RandomCodeGenerator struct{}

func (RandomCodeGenerator) Generate(length int) (string, error) {
	return gonanoid.Generate(Alphabet, length)
}
