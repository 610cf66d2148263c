package handlers

import (
	"net/http"

	"github.com/gourl/gourl/internal/apperrors"
	"github.com/gourl/gourl/internal/services"
)

// RedirectHandler handles GET /{shortCode}.
type RedirectHandler struct {
	service services.ShortenerService
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(svc services.ShortenerService) *RedirectHandler {
	return &RedirectHandler{service: svc}
}

// Redirect handles GET /{shortCode}: a 301 to the stored normalized
// URL on a hit, or the standard error envelope on a miss. No counter
// increment, no cache write happens here - the service and its
// repository decorator own that.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request, shortCode string) {
	originalURL, err := h.service.Resolve(r.Context(), shortCode)
	if err != nil {
		writeError(w, statusForKind(apperrors.KindOf(err)), err)
		return
	}

	http.Redirect(w, r, originalURL, http.StatusMovedPermanently)
}
