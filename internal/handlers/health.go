package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Health serves /api/health, /healthz and /readyz. Critical checks gate
// readiness; the rest only degrade /api/health.
type Health struct {
	critical map[string]Check
	optional map[string]Check
}

func NewHealth() *Health {
	return &Health{critical: map[string]Check{}, optional: map[string]Check{}}
}

// Critical adds a check that must pass for the instance to take traffic.
func (h *Health) Critical(name string, c Check) *Health {
	h.critical[name] = c
	return h
}

func (h *Health) Optional(name string, c Check) *Health {
	h.optional[name] = c
	return h
}

func (h *Health) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /healthz", h.Liveness)
	mux.HandleFunc("GET /readyz", h.Readiness)
}

func run(ctx context.Context, checks map[string]Check) map[string]error {
	out := make(map[string]error, len(checks))
	for name, c := range checks {
		out[name] = c(ctx)
	}
	return out
}

// Health reports every dependency.
func (h *Health) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ok", http.StatusOK
	checks := map[string]any{}
	report := func(results map[string]error, critical bool) {
		names := make([]string, 0, len(results))
		for n := range results {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if err := results[n]; err != nil {
				status = "degraded"
				if critical {
					httpStatus = http.StatusServiceUnavailable
				}
				checks[n] = map[string]string{"status": "unhealthy", "error": err.Error()}
				continue
			}
			checks[n] = map[string]string{"status": "healthy"}
		}
	}
	report(run(ctx, h.critical), true)
	report(run(ctx, h.optional), false)

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Health) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness returns 503 while any critical dependency is failing.
func (h *Health) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, err := range run(ctx, h.critical) {
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    "not_ready",
				"reason":    name + "_unavailable",
				"timestamp": time.Now().Unix(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}
