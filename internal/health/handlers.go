package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger probes a single dependency for readiness.
type Pinger func(ctx context.Context, timeout time.Duration) error

// Handler exposes HTTP handlers for health endpoints. Probes are keyed by
// dependency name and run independently; readiness requires all to pass.
type Handler struct {
	Probes  map[string]Pinger
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if len(h.Probes) == 0 {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	status := make(map[string]string, len(h.Probes))
	healthy := true
	for name, probe := range h.Probes {
		if err := probe(ctx, h.timeout()); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.Timeout
}
