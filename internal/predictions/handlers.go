package predictions

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/predictly-ai/gateway/internal/common"
)

// Display fallbacks for partially generated analyses. The result view is
// rendered as-is by the storefront, so gaps are filled here.
const (
	fallbackProfile         = "Analyse personnalisée"
	fallbackWorkEnvironment = "Détails non disponibles pour le moment."
	fallbackDisclaimer      = "Résultats générés automatiquement, à utiliser comme guide."
	fallbackCategoryName    = "Catégorie personnalisée"
)

// Handler exposes read endpoints over engine-owned prediction orders.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

type categoryView struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type predictionView struct {
	ID          string        `json:"id"`
	TotalAmount float64       `json:"total_amount"`
	Currency    string        `json:"currency"`
	Status      string        `json:"status"`
	CreatedAt   string        `json:"created_at,omitempty"`
	Category    *categoryView `json:"category,omitempty"`
	HasResult   bool          `json:"has_result"`
}

type resultView struct {
	ID              string        `json:"id"`
	Status          string        `json:"status"`
	Category        *categoryView `json:"category,omitempty"`
	Profile         string        `json:"profile"`
	WorkEnvironment string        `json:"work_environment"`
	Suggestions     []string      `json:"suggestions"`
	NextSteps       []string      `json:"next_steps"`
	Disclaimer      string        `json:"disclaimer"`
}

// Get handles GET /api/v1/predictions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		common.WriteError(w, common.ValidationError("prediction id is required"))
		return
	}
	pred, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toPredictionView(pred))
}

// Result handles GET /api/v1/predictions/{id}/result, triggering generation
// when the analysis does not exist yet.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		common.WriteError(w, common.ValidationError("prediction id is required"))
		return
	}
	pred, err := h.Svc.EnsureResult(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !pred.HasResult() {
		common.WriteError(w, common.UpstreamError("result generation did not complete", nil))
		return
	}
	common.JSON(w, http.StatusOK, toResultView(pred))
}

func toPredictionView(p Prediction) predictionView {
	return predictionView{
		ID:          p.ID,
		TotalAmount: p.TotalAmount,
		Currency:    p.Currency,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		Category:    toCategoryView(p.Category),
		HasResult:   p.HasResult(),
	}
}

func toResultView(p Prediction) resultView {
	view := resultView{
		ID:              p.ID,
		Status:          p.Status,
		Category:        toCategoryView(p.Category),
		Profile:         p.Result.Profile,
		WorkEnvironment: p.Result.WorkEnvironment,
		Suggestions:     p.Result.Suggestions,
		NextSteps:       p.Result.NextSteps,
		Disclaimer:      p.Result.Disclaimer,
	}
	if view.Profile == "" {
		view.Profile = fallbackProfile
	}
	if view.WorkEnvironment == "" {
		view.WorkEnvironment = fallbackWorkEnvironment
	}
	if view.Disclaimer == "" {
		view.Disclaimer = fallbackDisclaimer
	}
	if view.Suggestions == nil {
		view.Suggestions = []string{}
	}
	if view.NextSteps == nil {
		view.NextSteps = []string{}
	}
	return view
}

func toCategoryView(c *Category) *categoryView {
	if c == nil {
		return &categoryView{Name: fallbackCategoryName}
	}
	name := c.Name
	if name == "" {
		name = fallbackCategoryName
	}
	return &categoryView{ID: c.ID, Name: name}
}
