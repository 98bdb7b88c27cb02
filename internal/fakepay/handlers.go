package fakepay

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/predictly-ai/gateway/internal/common"
)

var validate = validator.New()

// Handler exposes the payment simulation endpoints. When the simulator is
// disabled the routes behave as if they do not exist.
type Handler struct {
	Sim     *Simulator
	Enabled bool
}

func NewHandler(sim *Simulator, enabled bool) *Handler {
	return &Handler{Sim: sim, Enabled: enabled}
}

type simulateRequest struct {
	CardNumber string `json:"card_number" validate:"omitempty,numeric,min=12,max=19"`
	Outcome    string `json:"outcome" validate:"omitempty,oneof=succeeded failed"`
}

type statusView struct {
	PredictionID string `json:"prediction_id"`
	State        string `json:"state"`
	Outcome      string `json:"outcome,omitempty"`
	TxRef        string `json:"tx_ref,omitempty"`
	CardSuccess  string `json:"card_success"`
	CardFailure  string `json:"card_failure"`
}

type simulateView struct {
	PredictionID string `json:"prediction_id"`
	Outcome      string `json:"outcome"`
	TxRef        string `json:"tx_ref"`
	RedirectURL  string `json:"redirect_url"`
}

// Status handles GET /api/v1/fakepay/{id}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled {
		http.NotFound(w, r)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		common.WriteError(w, common.ValidationError("prediction id is required"))
		return
	}
	state, outcome, txRef := h.Sim.Status(id)
	common.JSON(w, http.StatusOK, statusView{
		PredictionID: id,
		State:        string(state),
		Outcome:      string(outcome),
		TxRef:        txRef,
		CardSuccess:  CardSuccess,
		CardFailure:  CardFailure,
	})
}

// Simulate handles POST /api/v1/fakepay/{id}.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled {
		http.NotFound(w, r)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		common.WriteError(w, common.ValidationError("prediction id is required"))
		return
	}
	var req simulateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.WriteError(w, common.ValidationError("invalid JSON body"))
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		common.WriteError(w, common.ValidationError("invalid simulation request"))
		return
	}

	result, err := h.Sim.Run(r.Context(), id, req.CardNumber, Outcome(req.Outcome))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, simulateView{
		PredictionID: id,
		Outcome:      string(result.Outcome),
		TxRef:        result.TxRef,
		RedirectURL:  result.RedirectURL,
	})
}
