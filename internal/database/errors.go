package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a new shortened URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrOriginalURLExists is returned when the original URL is already
	// shortened by another record.
	ErrOriginalURLExists = errors.New("original url exists")
	// ErrURLNotFound is returned when an attempt is made to retrieve
	// a URL using a short code that doesn't exist.
	ErrURLNotFound = errors.New("url not found")
	// ErrUserNotFound is returned when the referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")
)
