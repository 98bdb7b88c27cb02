package fakepay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/v1/fakepay/{id}", h.Status)
	r.Post("/api/v1/fakepay/{id}", h.Simulate)
	return r
}

func TestHandlerDisabledReturns404(t *testing.T) {
	h := NewHandler(newSimulator(&fakeSandbox{}, ""), false)
	router := newRouter(h)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, "/api/v1/fakepay/pred-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestHandlerStatus(t *testing.T) {
	h := NewHandler(newSimulator(&fakeSandbox{}, ""), true)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fakepay/pred-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var view statusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "idle", view.State)
	require.Equal(t, CardSuccess, view.CardSuccess)
	require.Equal(t, CardFailure, view.CardFailure)
}

func TestHandlerSimulate(t *testing.T) {
	h := NewHandler(NewSimulator(&fakeSandbox{}, Signer{}, 0, zerolog.Nop()), true)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fakepay/pred-1", strings.NewReader(`{"card_number":"4242424242424242"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var view simulateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "succeeded", view.Outcome)
	require.Equal(t, "/result/pred-1", view.RedirectURL)
}

func TestHandlerSimulateEmptyBody(t *testing.T) {
	h := NewHandler(newSimulator(&fakeSandbox{}, ""), true)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fakepay/pred-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerSimulateInvalidOutcome(t *testing.T) {
	h := NewHandler(newSimulator(&fakeSandbox{}, ""), true)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fakepay/pred-1", strings.NewReader(`{"outcome":"maybe"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerSimulateReplay(t *testing.T) {
	h := NewHandler(newSimulator(&fakeSandbox{}, ""), true)
	router := newRouter(h)

	body := `{"card_number":"4242424242424242"}`
	for i, wantStatus := range []int{http.StatusOK, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fakepay/pred-1", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, wantStatus, rec.Code, "request %d", i)
	}
}
