package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/predictly-ai/gateway/internal/common"
	"github.com/predictly-ai/gateway/internal/resilience"
)

const (
	productName        = "Analyse Predictly AI"
	productDescription = "Accès immédiat aux résultats."

	genericSessionError = "La création de la session de paiement a échoué."
)

// StripeProvider creates hosted checkout sessions through Stripe's REST API.
// The call is never retried so a buyer can never end up with two sessions for
// one click.
type StripeProvider struct {
	BaseURL string
	APIKey  string
	HTTP    *resilience.HTTPClient
}

func NewStripeProvider(baseURL, apiKey string, httpClient *resilience.HTTPClient) *StripeProvider {
	return &StripeProvider{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, HTTP: httpClient}
}

// CreateSession opens a single-item payment session and returns the hosted
// page URL.
func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.PredictionID)
	form.Set("line_items[0][price_data][currency]", req.Currency)
	form.Set("line_items[0][price_data][product_data][name]", productName)
	form.Set("line_items[0][price_data][product_data][description]", productDescription)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.UnitAmount, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("metadata[prediction_id]", req.PredictionID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTP.Do(ctx, httpReq)
	if err != nil {
		return Session{}, common.UpstreamError("payment provider unreachable", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, common.UpstreamError("payment provider response truncated", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Session{}, common.ProviderError(providerMessage(body), resp.StatusCode, nil)
	}

	var session struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &session); err != nil || session.URL == "" {
		return Session{}, common.UpstreamError("payment provider returned no session url", err)
	}
	return Session{URL: session.URL}, nil
}

// providerMessage surfaces the provider's own error message when one is
// present, otherwise a generic user-facing one.
func providerMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Error.Message); msg != "" {
			return msg
		}
	}
	return genericSessionError
}
