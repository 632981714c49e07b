// Package http exposes the URL shortening service over HTTP.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/shortline-dev/shortline/internal/auth"
	"github.com/shortline-dev/shortline/internal/metrics"
	"github.com/shortline-dev/shortline/internal/models"
	"github.com/shortline-dev/shortline/internal/service"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// ShortenURL creates a shortened URL owned by the given user.
	ShortenURL(ctx context.Context, ownerID int64, input service.ShortenInput) (*models.URL, error)

	// ResolveShortCode resolves a short code, applying password, active-state
	// and expiry checks and registering the visit.
	ResolveShortCode(ctx context.Context, shortCode, password string) (*models.URL, error)

	// DeleteURL soft-deletes the URL if the caller owns it.
	DeleteURL(ctx context.Context, shortCode string, callerID int64) error

	// EditURL updates the URL's expiry date on behalf of the caller.
	EditURL(ctx context.Context, shortCode string, expiryDate *time.Time, callerID int64) (*models.URL, error)

	// ShortenBatch shortens the URLs in input order, isolating per-item failures.
	ShortenBatch(ctx context.Context, callerID int64, urls []string) ([]service.BatchItem, error)

	// ListByOwner returns every URL owned by the user.
	ListByOwner(ctx context.Context, userID int64) ([]*models.URL, error)

	// ShortURL composes the shareable URL for a short code.
	ShortURL(shortCode string) string
}

// getValidate initializes a validator instance that reports field names
// from JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and
// middleware configured.
func NewRouter(logger *httplog.Logger, urlSvc URLService, tm *auth.TokenManager) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	validate := getValidate()

	r.Get("/ping", handlePing)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/redirect", handleRedirect(urlSvc))
	r.Get("/users/{userID}", handleListUserURLs(urlSvc))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tm))

		r.Post("/shorten", handleShortenURL(urlSvc, validate))
		r.Post("/shorten/batch", handleShortenBatch(urlSvc, validate))
		r.Delete("/shorten/{shortCode}", handleDeleteURL(urlSvc))
		r.Put("/edit/{shortCode}", handleEditURL(urlSvc))
	})

	return r
}
