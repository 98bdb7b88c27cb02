package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/predictly-ai/gateway/internal/common"
)

// Handler exposes the pay endpoint under the versioned API. Unlike the public
// storefront endpoint it uses the structured error envelope.
type Handler struct {
	Svc           *Service
	PublicBaseURL string
}

func NewHandler(svc *Service, publicBaseURL string) *Handler {
	return &Handler{Svc: svc, PublicBaseURL: publicBaseURL}
}

// Pay handles POST /api/v1/predictions/{id}/pay.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		common.WriteError(w, common.ValidationError("prediction id is required"))
		return
	}
	session, err := h.Svc.Pay(r.Context(), id, common.RequestOrigin(r, h.PublicBaseURL))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"url": session.URL})
}
