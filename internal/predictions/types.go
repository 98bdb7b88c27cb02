package predictions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/predictly-ai/gateway/internal/common"
)

// Category identifies the analysis category a prediction belongs to.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Result is the generated analysis attached to a paid prediction.
type Result struct {
	Profile         string   `json:"profile"`
	WorkEnvironment string   `json:"work_environment"`
	Suggestions     []string `json:"suggestions"`
	NextSteps       []string `json:"next_steps"`
	Disclaimer      string   `json:"disclaimer"`
}

// Prediction is the strict internal view of an engine order. The engine owns
// the entity and mutates its status; the gateway only reads it.
type Prediction struct {
	ID          string
	TotalAmount float64
	Currency    string
	Status      string
	CreatedAt   string
	Category    *Category
	Result      *Result
}

// HasResult reports whether the analysis has been generated.
func (p Prediction) HasResult() bool {
	return p.Result != nil
}

// Payable verifies the invariant that a payment session may only be created
// for an order carrying a positive amount and a currency.
func (p Prediction) Payable() error {
	if p.TotalAmount <= 0 || strings.TrimSpace(p.Currency) == "" {
		return common.NewAppError(common.CodeOrderDataInvalid, "order is missing amount or currency", http.StatusNotFound, nil)
	}
	return nil
}

// DecodePrediction converts the engine's loose JSON into a strict Prediction.
// The engine wraps payloads inconsistently ({data:...}, {prediction:...} or a
// bare object) and renders amounts as either numbers or strings; every field
// access goes through an explicit presence check.
func DecodePrediction(raw []byte) (Prediction, error) {
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	obj := unwrapEnvelope(root)

	p := Prediction{
		ID:        stringField(obj, "id"),
		Currency:  strings.ToLower(stringField(obj, "currency")),
		Status:    stringField(obj, "status"),
		CreatedAt: stringField(obj, "created_at"),
	}
	if amount, ok := numberField(obj, "total_amount"); ok {
		p.TotalAmount = amount
	}
	if cat, ok := obj["category"].(map[string]any); ok {
		p.Category = &Category{ID: stringField(cat, "id"), Name: stringField(cat, "name")}
	}
	if res, ok := obj["result"].(map[string]any); ok {
		p.Result = decodeResult(res)
	}
	return p, nil
}

func unwrapEnvelope(root map[string]any) map[string]any {
	if data, ok := root["data"].(map[string]any); ok {
		return data
	}
	if pred, ok := root["prediction"].(map[string]any); ok {
		return pred
	}
	return root
}

// decodeResult handles result_json arriving either as an embedded object or
// as a JSON-encoded string. A result that cannot be parsed is treated as
// absent rather than failing the whole view.
func decodeResult(res map[string]any) *Result {
	payload, ok := res["result_json"]
	if !ok {
		return nil
	}
	var fields map[string]any
	switch v := payload.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &fields); err != nil {
			return nil
		}
	case map[string]any:
		fields = v
	default:
		return nil
	}
	return &Result{
		Profile:         stringField(fields, "profile"),
		WorkEnvironment: stringField(fields, "work_environment"),
		Suggestions:     stringSlice(fields, "suggestions"),
		NextSteps:       stringSlice(fields, "next_steps"),
		Disclaimer:      stringField(fields, "disclaimer"),
	}
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func numberField(obj map[string]any, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func stringSlice(obj map[string]any, key string) []string {
	items, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
