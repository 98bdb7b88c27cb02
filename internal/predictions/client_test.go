package predictions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predictly-ai/gateway/internal/common"
	"github.com/predictly-ai/gateway/internal/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", &resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1})
}

func TestClientGet(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predictions/p1", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"p1","total_amount":"19.99","currency":"EUR","status":"pending_payment"}}`))
	}))

	pred, err := client.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", pred.ID)
	require.Equal(t, 19.99, pred.TotalAmount)
	require.Equal(t, "eur", pred.Currency)
}

func TestClientGetNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Get(context.Background(), "missing")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeOrderNotFound, appErr.Code)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestClientCheckoutRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predictions/p1/checkout", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
	}))

	err := client.Checkout(context.Background(), "p1")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeUpstream, appErr.Code)
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := NewClient(url, "", &resilience.HTTPClient{Client: http.DefaultClient, MaxAttempts: 1})

	_, err := client.Get(context.Background(), "p1")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeUpstream, appErr.Code)
}

func TestClientFakeInitiate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/fake/initiate", r.URL.Path)
		w.Write([]byte(`{"tx_ref":"txn-123"}`))
	}))

	txRef, err := client.FakeInitiate(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "txn-123", txRef)
}

func TestClientFakeInitiateMissingRef(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := client.FakeInitiate(context.Background(), "p1")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeSimulationFailed, appErr.Code)
}

func TestClientFakeWebhookSignatureHeader(t *testing.T) {
	var gotSig string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/fake/webhook", r.URL.Path)
		gotSig = r.Header.Get("X-FakePay-Signature")
		w.WriteHeader(http.StatusOK)
	}))

	err := client.FakeWebhook(context.Background(), "txn-123", "succeeded", "SimulatedSignature")
	require.NoError(t, err)
	require.Equal(t, "SimulatedSignature", gotSig)
}
