package predictions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/predictly-ai/gateway/internal/common"
	"github.com/predictly-ai/gateway/internal/obs"
	"github.com/predictly-ai/gateway/internal/resilience"
)

// Client talks to the prediction engine API. The engine owns orders, payment
// status and result generation; the gateway never writes state of its own.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *resilience.HTTPClient
}

func NewClient(baseURL, token string, httpClient *resilience.HTTPClient) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, HTTP: httpClient}
}

// Get fetches a single prediction order by id.
func (c *Client) Get(ctx context.Context, id string) (Prediction, error) {
	body, status, err := c.do(ctx, "get", http.MethodGet, "/predictions/"+id, nil)
	if err != nil {
		return Prediction{}, err
	}
	if status == http.StatusNotFound {
		return Prediction{}, common.NewAppError(common.CodeOrderNotFound, "prediction not found", http.StatusNotFound, nil)
	}
	if status < 200 || status >= 300 {
		return Prediction{}, engineError("get", status)
	}
	pred, err := DecodePrediction(body)
	if err != nil {
		return Prediction{}, common.NewAppError(common.CodeOrderDataInvalid, "prediction payload could not be parsed", http.StatusBadGateway, err)
	}
	return pred, nil
}

// Checkout asks the engine to prepare the order for payment. It must succeed
// before any provider session is created.
func (c *Client) Checkout(ctx context.Context, id string) error {
	_, status, err := c.do(ctx, "checkout", http.MethodPost, "/predictions/"+id+"/checkout", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return common.NewAppError(common.CodeOrderNotFound, "prediction not found", http.StatusNotFound, nil)
	}
	if status < 200 || status >= 300 {
		return engineError("checkout", status)
	}
	return nil
}

// Run triggers result generation for a paid prediction.
func (c *Client) Run(ctx context.Context, id string) error {
	_, status, err := c.do(ctx, "run", http.MethodPost, "/predictions/"+id+"/run", nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return engineError("run", status)
	}
	return nil
}

// FakeInitiate opens a simulated payment transaction on the engine and
// returns its transaction reference.
func (c *Client) FakeInitiate(ctx context.Context, predictionID string) (string, error) {
	payload := map[string]string{"prediction_request_id": predictionID}
	body, status, err := c.do(ctx, "fake_initiate", http.MethodPost, "/payments/fake/initiate", payload)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", engineError("fake_initiate", status)
	}
	var out struct {
		TxRef string `json:"tx_ref"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.TxRef == "" {
		return "", common.NewAppError(common.CodeSimulationFailed, "engine did not return a transaction reference", http.StatusBadGateway, err)
	}
	return out.TxRef, nil
}

// WebhookPayload builds the canonical callback body for a simulated payment.
// Signatures are computed over these exact bytes, so both signing and sending
// must go through this function.
func WebhookPayload(txRef, status string) ([]byte, error) {
	return json.Marshal(struct {
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
	}{TxRef: txRef, Status: status})
}

// FakeWebhook delivers the simulated provider callback for a previously
// initiated transaction.
func (c *Client) FakeWebhook(ctx context.Context, txRef, status, signature string) error {
	raw, err := WebhookPayload(txRef, status)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payments/fake/webhook", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-FakePay-Signature", signature)
	c.authorize(req)

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		obs.CountEngineRequest("fake_webhook", "error")
		return common.UpstreamError("prediction engine unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		obs.CountEngineRequest("fake_webhook", "rejected")
		return engineError("fake_webhook", resp.StatusCode)
	}
	obs.CountEngineRequest("fake_webhook", "ok")
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal %s payload: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build %s request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		obs.CountEngineRequest(op, "error")
		return nil, 0, common.UpstreamError("prediction engine unreachable", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		obs.CountEngineRequest(op, "error")
		return nil, 0, common.UpstreamError("prediction engine response truncated", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		obs.CountEngineRequest(op, "ok")
	} else {
		obs.CountEngineRequest(op, "rejected")
	}
	return data, resp.StatusCode, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

func engineError(op string, status int) error {
	msg := fmt.Sprintf("prediction engine rejected %s (status %d)", op, status)
	return common.NewAppError(common.CodeUpstream, msg, http.StatusBadGateway, nil)
}
