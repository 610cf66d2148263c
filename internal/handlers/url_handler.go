package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gourl/gourl/internal/apperrors"
	"github.com/gourl/gourl/internal/services"
)

// ShortenRequest is the request body for POST /api/shorten.
type ShortenRequest struct {
	URL string `json:"url"`
}

// ShortenResponse is the response body for a successful shorten.
type ShortenResponse struct {
	ShortCode string `json:"shortCode"`
	ShortURL  string `json:"shortUrl"`
}

// ErrorResponse is the error envelope used across all 4xx/5xx
// responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ShortenHandler handles POST /api/shorten.
type ShortenHandler struct {
	service services.ShortenerService
}

// NewShortenHandler creates a new ShortenHandler.
func NewShortenHandler(svc services.ShortenerService) *ShortenHandler {
	return &ShortenHandler{service: svc}
}

// Shorten handles POST /api/shorten.
func (h *ShortenHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.New(apperrors.KindInvalidURL, "request body must be valid JSON"))
		return
	}

	result, err := h.service.Shorten(r.Context(), req.URL)
	if err != nil {
		writeError(w, statusForKind(apperrors.KindOf(err)), err)
		return
	}

	writeJSON(w, http.StatusOK, ShortenResponse{
		ShortCode: result.ShortCode,
		ShortURL:  result.ShortURL,
	})
}

// statusForKind maps an apperrors.Kind to the HTTP status it should
// surface as.
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidURL:
		return http.StatusBadRequest
	case apperrors.KindShortCodeNotFound:
		return http.StatusNotFound
	case apperrors.KindStorageUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the standard JSON error envelope.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{
		Error:     apperrors.KindOf(err).String(),
		Message:   err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
