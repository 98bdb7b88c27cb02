package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker represents dependencies that can be probed for readiness. The
// gateway is only useful when both Redis and the prediction engine answer.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
	PingEngine(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker       Checker
	RedisTimeout  time.Duration
	EngineTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	redisStatus := "ok"
	if err := h.Checker.PingRedis(ctx, h.redisTimeout()); err != nil {
		redisStatus = err.Error()
	}
	engineStatus := "ok"
	if err := h.Checker.PingEngine(ctx, h.engineTimeout()); err != nil {
		engineStatus = err.Error()
	}
	status := map[string]string{
		"redis":  redisStatus,
		"engine": engineStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if redisStatus != "ok" || engineStatus != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

func (h Handler) engineTimeout() time.Duration {
	if h.EngineTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.EngineTimeout
}
