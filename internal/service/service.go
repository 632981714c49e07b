// Package service implements the URL shortening core: code generation and
// uniqueness enforcement, access-controlled resolution, soft deletion and
// expiry edits, and per-item-isolated batch shortening.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shortline-dev/shortline/internal/database"
	"github.com/shortline-dev/shortline/internal/models"
)

var (
	// ErrEmptyURL is returned when the original URL is empty or blank.
	ErrEmptyURL = errors.New("url cannot be empty")
	// ErrAccessDenied is returned when a password-protected URL is resolved
	// with the wrong password.
	ErrAccessDenied = errors.New("password does not match")
	// ErrURLExpired is returned when the URL's expiry date is in the past.
	ErrURLExpired = errors.New("url has expired")
	// ErrNotOwner is returned when a caller tries to delete a URL they don't own.
	ErrNotOwner = errors.New("url is owned by another user")
	// ErrEnterpriseRequired is returned when a caller without the enterprise
	// role requests batch shortening.
	ErrEnterpriseRequired = errors.New("enterprise role required")
)

// URLRepository defines the interface for working with URL records at the
// business logic layer.
type URLRepository interface {
	// Create inserts a new record, signaling uniqueness conflicts with
	// database.ErrShortCodeExists or database.ErrOriginalURLExists.
	Create(ctx context.Context, url *models.URL) (*models.URL, error)

	// GetByShortCode retrieves a record by its short code.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetByOriginalURL retrieves a record by its original URL.
	GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error)

	// ExistsByShortCode reports whether a short code is taken, active or not.
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)

	// RegisterVisit atomically increments the visit counter and refreshes
	// the last-accessed timestamp, returning the updated record.
	RegisterVisit(ctx context.Context, shortCode string) (*models.URL, error)

	// UpdateExpiry replaces the record's expiry date.
	UpdateExpiry(ctx context.Context, shortCode string, expiryDate *time.Time) (*models.URL, error)

	// Deactivate soft-deletes the record.
	Deactivate(ctx context.Context, shortCode string) error

	// ListByOwner returns every record owned by the user, inactive ones included.
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.URL, error)
}

// UserRepository is the user-lookup collaborator used to resolve callers
// and owners.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// ShortenInput carries the caller-supplied fields of a shorten request.
type ShortenInput struct {
	OriginalURL string
	CustomCode  string
	ExpiryDate  *time.Time
	Password    string
}

// Batch item statuses.
const (
	BatchSuccess = "SUCCESS"
	BatchFailure = "FAILURE"
)

// BatchItem is the per-URL outcome of a batch shorten. Items mirror the
// input order one to one.
type BatchItem struct {
	OriginalURL string
	ShortURL    string
	Status      string
	Error       string
}

// URLService provides the URL shortening operations. It owns the code
// generator and password verifier; persistence goes through the injected
// repositories.
type URLService struct {
	urlRepo    URLRepository
	userRepo   UserRepository
	gen        CodeGenerator
	verifier   PasswordVerifier
	baseURL    string
	codeLength int
	now        func() time.Time
}

// NewURLService creates a new URLService. The base URL is prepended to
// short codes when composing short URLs.
func NewURLService(urlRepo URLRepository, userRepo UserRepository, gen CodeGenerator, verifier PasswordVerifier, baseURL string, codeLength int) *URLService {
	return &URLService{
		urlRepo:    urlRepo,
		userRepo:   userRepo,
		gen:        gen,
		verifier:   verifier,
		baseURL:    baseURL,
		codeLength: codeLength,
		now:        time.Now,
	}
}

// ShortURL composes the shareable URL for a short code.
func (s *URLService) ShortURL(shortCode string) string {
	return s.baseURL + shortCode
}

// ShortenURL creates a shortened URL owned by ownerID. A requested custom
// code must be free; otherwise codes are generated until an unused one is
// found. A create that loses a uniqueness race on the original URL returns
// the record that won instead of an error.
func (s *URLService) ShortenURL(ctx context.Context, ownerID int64, input ShortenInput) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"

	originalURL := strings.TrimSpace(input.OriginalURL)
	if originalURL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyURL)
	}

	if _, err := s.userRepo.GetByID(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("%s: failed to resolve owner: %w", op, err)
	}

	url := &models.URL{
		OriginalURL: originalURL,
		CustomCode:  strings.TrimSpace(input.CustomCode),
		ExpiryDate:  input.ExpiryDate,
		Password:    input.Password,
		OwnerID:     ownerID,
	}

	if url.CustomCode != "" {
		return s.createWithCustomCode(ctx, op, url)
	}

	return s.createWithGeneratedCode(ctx, op, url)
}

func (s *URLService) createWithCustomCode(ctx context.Context, op string, url *models.URL) (*models.URL, error) {
	taken, err := s.urlRepo.ExistsByShortCode(ctx, url.CustomCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to check custom code: %w", op, err)
	}
	if taken {
		return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
	}

	url.ShortCode = url.CustomCode

	created, err := s.urlRepo.Create(ctx, url)
	if err != nil {
		if errors.Is(err, database.ErrOriginalURLExists) {
			return s.recoverExisting(ctx, op, url.OriginalURL)
		}

		// A short code race on a caller-chosen code stays a conflict.
		return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
	}

	return created, nil
}

// createWithGeneratedCode retries until an unused code is inserted. The loop
// has no retry cap: with a 62^6 code space the collision probability per draw
// is negligible, and termination rests on that property alone.
func (s *URLService) createWithGeneratedCode(ctx context.Context, op string, url *models.URL) (*models.URL, error) {
	for {
		code, err := s.gen.Generate(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		taken, err := s.urlRepo.ExistsByShortCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to check short code: %w", op, err)
		}
		if taken {
			continue
		}

		url.ShortCode = code

		created, err := s.urlRepo.Create(ctx, url)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				// A concurrent writer won the race on this code; draw another.
				continue
			}
			if errors.Is(err, database.ErrOriginalURLExists) {
				return s.recoverExisting(ctx, op, url.OriginalURL)
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return created, nil
	}
}

// recoverExisting handles the create-path race on the original URL: the
// concurrent writer's record is returned as the successful result, trading
// idempotence-by-code for idempotence-by-original-URL.
func (s *URLService) recoverExisting(ctx context.Context, op, originalURL string) (*models.URL, error) {
	existing, err := s.urlRepo.GetByOriginalURL(ctx, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch record after conflict: %w", op, err)
	}

	return existing, nil
}

// ResolveShortCode resolves a short code to its record, applying checks in
// this order: existence, password, active state, expiry. On success the
// visit counter and access timestamp are updated before returning.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode, password string) (*models.URL, error) {
	const op = "service.URLService.ResolveShortCode"

	url, err := s.urlRepo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if url.Password != "" && !s.verifier.Verify(url.Password, password) {
		return nil, fmt.Errorf("%s: %w", op, ErrAccessDenied)
	}

	// Soft-deleted records are indistinguishable from never-existing ones.
	if !url.IsActive {
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	// Strictly before: a record expiring at exactly this instant still resolves.
	if url.ExpiryDate != nil && url.ExpiryDate.Before(s.now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrURLExpired)
	}

	url, err = s.urlRepo.RegisterVisit(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to register visit: %w", op, err)
	}

	return url, nil
}

// DeleteURL soft-deletes the URL after verifying the caller owns it. The
// short code stays reserved.
func (s *URLService) DeleteURL(ctx context.Context, shortCode string, callerID int64) error {
	const op = "service.URLService.DeleteURL"

	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("%s: failed to resolve caller: %w", op, err)
	}

	url, err := s.urlRepo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	if url.OwnerID != caller.ID {
		return fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	if err := s.urlRepo.Deactivate(ctx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	return nil
}

// EditURL replaces the URL's expiry date on behalf of callerID. The contract
// is deliberately this narrow: the original URL and custom code are immutable
// after creation.
func (s *URLService) EditURL(ctx context.Context, shortCode string, expiryDate *time.Time, callerID int64) (*models.URL, error) {
	const op = "service.URLService.EditURL"

	if _, err := s.userRepo.GetByID(ctx, callerID); err != nil {
		return nil, fmt.Errorf("%s: failed to resolve caller: %w", op, err)
	}

	url, err := s.urlRepo.UpdateExpiry(ctx, shortCode, expiryDate)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to edit url: %w", op, err)
	}

	return url, nil
}

// ShortenBatch shortens every URL in input order through the single-shorten
// path. The caller must hold the enterprise role or the whole batch fails;
// after that, one item's failure never aborts the rest.
func (s *URLService) ShortenBatch(ctx context.Context, callerID int64, urls []string) ([]BatchItem, error) {
	const op = "service.URLService.ShortenBatch"

	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve caller: %w", op, err)
	}

	if !caller.HasRole(models.RoleEnterprise) {
		return nil, fmt.Errorf("%s: %w", op, ErrEnterpriseRequired)
	}

	items := make([]BatchItem, 0, len(urls))

	for _, u := range urls {
		url, err := s.ShortenURL(ctx, callerID, ShortenInput{OriginalURL: u})
		if err != nil {
			items = append(items, BatchItem{
				OriginalURL: u,
				Status:      BatchFailure,
				Error:       err.Error(),
			})
			continue
		}

		items = append(items, BatchItem{
			OriginalURL: u,
			ShortURL:    s.ShortURL(url.ShortCode),
			Status:      BatchSuccess,
		})
	}

	return items, nil
}

// ListByOwner returns every URL owned by the user, soft-deleted ones
// included.
func (s *URLService) ListByOwner(ctx context.Context, userID int64) ([]*models.URL, error) {
	const op = "service.URLService.ListByOwner"

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: failed to resolve user: %w", op, err)
	}

	urls, err := s.urlRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return urls, nil
}
