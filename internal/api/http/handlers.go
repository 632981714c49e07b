package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/shortline-dev/shortline/internal/auth"
	"github.com/shortline-dev/shortline/internal/database"
	"github.com/shortline-dev/shortline/internal/models"
	"github.com/shortline-dev/shortline/internal/service"
	"github.com/shortline-dev/shortline/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// shortenRequest represents the request payload for shortening a URL.
// Beyond presence, the URL's content is deliberately not validated.
type shortenRequest struct {
	URL        string     `json:"url" validate:"required"`
	CustomCode string     `json:"custom_code,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Password   string     `json:"password,omitempty"`
}

// urlResponse represents the response payload for a shortened URL.
type urlResponse struct {
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

func toURLResponse(svc URLService, url *models.URL) urlResponse {
	return urlResponse{
		OriginalURL: url.OriginalURL,
		ShortCode:   url.ShortCode,
		ShortURL:    svc.ShortURL(url.ShortCode),
		ExpiryDate:  url.ExpiryDate,
	}
}

// handleShortenURL handles POST requests to shorten a URL.
//
// The caller becomes the record's owner. A custom code, expiry date and
// password are optional.
func handleShortenURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.UnauthorizedResponse)
			return
		}

		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ShortenURL(r.Context(), id.UserID, service.ShortenInput{
			OriginalURL: req.URL,
			CustomCode:  req.CustomCode,
			ExpiryDate:  req.ExpiryDate,
			Password:    req.Password,
		})
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmptyURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.BadRequestResponse)
			case errors.Is(err, database.ErrUserNotFound):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UserNotFoundResponse)
			case errors.Is(err, database.ErrShortCodeExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.CodeTakenResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(svc, url)))
	}
}

// batchShortenRequest represents the request payload for batch shortening.
type batchShortenRequest struct {
	URLs []string `json:"urls" validate:"required,min=1"`
}

// batchItemResponse is the per-URL outcome of a batch shorten.
type batchItemResponse struct {
	OriginalURL string `json:"original_url"`
	ShortURL    string `json:"short_url,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

func toBatchResponse(items []service.BatchItem) []batchItemResponse {
	resp := make([]batchItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, batchItemResponse{
			OriginalURL: item.OriginalURL,
			ShortURL:    item.ShortURL,
			Status:      item.Status,
			Error:       item.Error,
		})
	}
	return resp
}

// handleShortenBatch handles POST requests to shorten a list of URLs.
//
// The caller must hold the enterprise role. Items are reported in input
// order; a failed item never aborts the rest.
func handleShortenBatch(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenBatch"
	const successMsg = "The batch has been processed."

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.UnauthorizedResponse)
			return
		}

		var req batchShortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		items, err := svc.ShortenBatch(r.Context(), id.UserID, req.URLs)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrUserNotFound):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UserNotFoundResponse)
			case errors.Is(err, service.ErrEnterpriseRequired):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.ForbiddenResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toBatchResponse(items)))
	}
}

// handleRedirect handles GET requests to resolve a short code and redirect
// to the original URL. The password, when the record has one, is supplied
// as a query parameter.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := r.URL.Query().Get("shortCode")
		if shortCode == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		url, err := svc.ResolveShortCode(r.Context(), shortCode, r.URL.Query().Get("password"))
		if err != nil {
			switch {
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, service.ErrAccessDenied):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.InvalidPasswordResponse)
			case errors.Is(err, service.ErrURLExpired):
				render.Status(r, http.StatusGone)
				render.JSON(w, r, response.URLExpiredResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}

// handleDeleteURL handles DELETE requests to soft-delete a URL.
//
// Only the owner may delete. The short code stays reserved afterwards.
func handleDeleteURL(svc URLService) http.HandlerFunc {
	const op = "api.http.handleDeleteURL"
	const successMsg = "The URL was deleted successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.UnauthorizedResponse)
			return
		}

		shortCode := chi.URLParam(r, "shortCode")

		err := svc.DeleteURL(r.Context(), shortCode, id.UserID)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.UserNotFoundResponse)
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, service.ErrNotOwner):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.ForbiddenResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

// handleListUserURLs handles GET requests to list every URL owned by a
// user, soft-deleted ones included.
func handleListUserURLs(svc URLService) http.HandlerFunc {
	const op = "api.http.handleListUserURLs"
	const successMsg = "The URLs were retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		urls, err := svc.ListByOwner(r.Context(), userID)
		if err != nil {
			if errors.Is(err, database.ErrUserNotFound) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UserNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]urlResponse, 0, len(urls))
		for _, url := range urls {
			data = append(data, toURLResponse(svc, url))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// editRequest carries the single mutable field of a URL. The narrow shape
// is intentional: the original URL and custom code never change after
// creation.
type editRequest struct {
	ExpiryDate *time.Time `json:"expiry_date"`
}

// handleEditURL handles PUT requests to update a URL's expiry date.
func handleEditURL(svc URLService) http.HandlerFunc {
	const op = "api.http.handleEditURL"
	const successMsg = "The URL was updated successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.UnauthorizedResponse)
			return
		}

		var req editRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.EditURL(r.Context(), shortCode, req.ExpiryDate, id.UserID)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.UserNotFoundResponse)
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(svc, url)))
	}
}
