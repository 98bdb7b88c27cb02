package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/predictly-ai/gateway/internal/common"
)

// Handler exposes the public checkout endpoint. Its wire contract is flat,
// matching what the hosted storefront expects: {"url": ...} on success and
// {"error": "<message>"} on failure.
type Handler struct {
	Svc           *Service
	PublicBaseURL string
}

func NewHandler(svc *Service, publicBaseURL string) *Handler {
	return &Handler{Svc: svc, PublicBaseURL: publicBaseURL}
}

type checkoutRequest struct {
	PredictionID string  `json:"predictionId"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// CreateCheckoutSession handles POST /api/stripe/checkout.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFlatError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := h.Svc.CreateSession(r.Context(), CreateSessionInput{
		PredictionID: req.PredictionID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Origin:       common.RequestOrigin(r, h.PublicBaseURL),
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := genericSessionError
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			if appErr.HTTPStatus != 0 {
				status = appErr.HTTPStatus
			}
			if appErr.Message != "" {
				message = appErr.Message
			}
		}
		writeFlatError(w, status, message)
		return
	}

	common.JSON(w, http.StatusOK, map[string]string{"url": session.URL})
}

func writeFlatError(w http.ResponseWriter, status int, message string) {
	common.JSON(w, status, map[string]string{"error": message})
}
