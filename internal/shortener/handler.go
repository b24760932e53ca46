package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tinylink-dev/tinylink/internal/errx"
	"github.com/tinylink-dev/tinylink/internal/httpx"
)

// HTTPCreateLinkRequest is the JSON body for creating a link.
type HTTPCreateLinkRequest struct {
	OriginalURL string `json:"originalUrl"`
	CustomCode  string `json:"customCode,omitempty"`
}

// CreateLinkResponse is the JSON response for a created link.
type CreateLinkResponse struct {
	ShortCode   string `json:"shortCode"`
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
}

// LinkResponse is the JSON projection used by list and stats.
type LinkResponse struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"shortCode"`
	ShortURL    string     `json:"shortUrl"`
	OriginalURL string     `json:"originalUrl"`
	TotalClicks int64      `json:"totalClicks"`
	LastClicked *time.Time `json:"lastClicked"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Handler provides the HTTP handlers for the URL shortener.
type Handler struct {
	service     Service
	logger      *slog.Logger
	baseURL     string
	environment string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service     Service
	Logger      *slog.Logger
	BaseURL     string // for constructing short URLs, e.g. "https://tiny.link"
	Environment string // reported by the health endpoint
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service:     cfg.Service,
		logger:      logger,
		baseURL:     cfg.BaseURL,
		environment: cfg.Environment,
	}
}

func (h *Handler) shortURL(code string) string {
	return fmt.Sprintf("%s/%s", h.baseURL, code)
}

func (h *Handler) toLinkResponse(link Link) LinkResponse {
	return LinkResponse{
		ID:          link.ID.String(),
		ShortCode:   link.ShortCode,
		ShortURL:    h.shortURL(link.ShortCode),
		OriginalURL: link.OriginalURL,
		TotalClicks: link.TotalClicks,
		LastClicked: link.LastClicked,
		CreatedAt:   link.CreatedAt,
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// CreateLink handles POST /api/links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if req.OriginalURL == "" {
		logger.WarnContext(ctx, "missing url in request")
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "originalUrl is required", nil)
		return
	}

	link, err := h.service.Create(ctx, CreateLinkRequest{
		OriginalURL: req.OriginalURL,
		CustomCode:  req.CustomCode,
	})
	if err != nil {
		h.handleCreateError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "link created",
		"link_id", link.ID.String(),
		"short_code", link.ShortCode,
		"custom_code", req.CustomCode != "",
	)

	httpx.WriteJSON(w, http.StatusCreated, CreateLinkResponse{
		ShortCode:   link.ShortCode,
		ShortURL:    h.shortURL(link.ShortCode),
		OriginalURL: link.OriginalURL,
	})
}

// Redirect handles GET /{code}: resolves the code, counts the click, and
// issues a 302 to the stored URL with scheme normalization applied.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	code := r.PathValue("code")
	originalURL, err := h.service.Resolve(ctx, code)
	if err != nil {
		h.handleLookupError(ctx, w, err, code)
		return
	}

	logger.InfoContext(ctx, "redirecting",
		"short_code", code,
		"original_url", originalURL,
		"referer", r.Referer(),
	)

	http.Redirect(w, r, normalizeScheme(originalURL), http.StatusFound)
}

// ListLinks handles GET /api/links.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	links, err := h.service.List(ctx)
	if err != nil {
		h.handleLookupError(ctx, w, err, "")
		return
	}

	resp := make([]LinkResponse, 0, len(links))
	for _, link := range links {
		resp = append(resp, h.toLinkResponse(link))
	}

	logger.InfoContext(ctx, "links listed", "count", len(resp))
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// GetStats handles GET /api/links/{code}.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.PathValue("code")
	link, err := h.service.Stats(ctx, code)
	if err != nil {
		h.handleLookupError(ctx, w, err, code)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.toLinkResponse(link))
}

// DeleteLink handles DELETE /api/links/{code}.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	code := r.PathValue("code")
	deleted, err := h.service.Delete(ctx, code)
	if err != nil {
		h.handleLookupError(ctx, w, err, code)
		return
	}
	if !deleted {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "link not found", nil)
		return
	}

	logger.InfoContext(ctx, "link deleted", "short_code", code)
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz with a store round-trip.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check failed", "error", err.Error())
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":      "error",
			"database":    "disconnected",
			"environment": h.environment,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"database":    "connected",
		"environment": h.environment,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCreateError maps Create failures to HTTP responses.
func (h *Handler) handleCreateError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	// Soft duplicate: the URL is already shortened, hand back the
	// existing mapping so the caller can reuse it.
	var dup *DuplicateURLError
	if errors.As(err, &dup) {
		h.logger.WarnContext(ctx, "url already shortened", logAttrs...)
		httpx.WriteJSON(w, http.StatusConflict, map[string]any{
			"error": "This URL has already been shortened",
			"existingLink": CreateLinkResponse{
				ShortCode:   dup.Existing.ShortCode,
				ShortURL:    h.shortURL(dup.Existing.ShortCode),
				OriginalURL: dup.Existing.OriginalURL,
			},
		})
		return
	}

	switch kind {
	case errx.Conflict:
		h.logger.WarnContext(ctx, "short code conflict", logAttrs...)
		httpx.WriteError(w, http.StatusConflict, "conflict",
			"This short code is already taken",
			map[string]string{
				"hint": "Try a different custom code or let us generate one for you",
			})

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid create request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	case errx.Unavailable:
		h.logger.ErrorContext(ctx, "store unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to create short link at this time. Please try again.", nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error creating link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to create short link at this time. Please try again.", nil)
	}
}

// handleLookupError maps read/resolve/delete failures to HTTP responses.
func (h *Handler) handleLookupError(ctx context.Context, w http.ResponseWriter, err error, code string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"short_code", code,
	}

	switch kind {
	case errx.NotFound:
		h.logger.WarnContext(ctx, "short code not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found", "link not found", nil)

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid short code", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	case errx.Unavailable:
		h.logger.ErrorContext(ctx, "store unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to serve this request at this time", nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to serve this request at this time", nil)
	}
}

// normalizeScheme prefixes https:// when the stored URL has no scheme so
// the Location header is an absolute URL. The stored value is untouched.
func normalizeScheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return "https://" + rawURL
}
