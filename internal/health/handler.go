package health

import (
	"net/http"

	"github.com/cloudfiles/webapp/internal/response"
)

// Handler serves the health endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates a new health Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Healthz godoc
//
//	@Summary		Health check
//	@Description	Round-trips the database and records a heartbeat. Both responses have an empty body.
//	@Tags			health
//	@Success		200
//	@Failure		503
//	@Router			/healthz [get]
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Check(r.Context()); err != nil {
		response.Status(w, http.StatusServiceUnavailable)
		return
	}
	response.Status(w, http.StatusOK)
}
