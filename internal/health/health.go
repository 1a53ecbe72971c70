// Package health provides the HTTP liveness and readiness handlers for the
// resolver service.
//
//   - /healthz — liveness; a process that can serve HTTP answers 200.
//   - /readyz  — readiness; 200 only while every registered [Checker] passes.
//   - /statsz  — resolver runtime counters (snapshot cache hits, misses,
//     evictions) as JSON.
//
// Health responses are JSON objects with a top-level "status" field ("ok" or
// "fail") and a "checks" map naming each probe result.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MrWong99/scopeql/internal/gateway"
)

// checkTimeout bounds a single readiness probe.
const checkTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil while the dependency
// is usable and must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// GatewayChecker probes the entity data gateway. Gateways that can list
// entities (both shipped backends can) are probed with a listing call, which
// for PostgreSQL exercises a live query; anything else gets a component read
// where "not found" still counts as healthy.
func GatewayChecker(gw gateway.Gateway) Checker {
	return Checker{
		Name: "gateway",
		Check: func(ctx context.Context) error {
			if l, ok := gw.(interface {
				EntityIDs(ctx context.Context) ([]string, error)
			}); ok {
				_, err := l.EntityIDs(ctx)
				return err
			}
			_, err := gw.GetComponent(ctx, "healthcheck", "healthcheck")
			if errors.Is(err, gateway.ErrComponentNotFound) {
				return nil
			}
			return err
		},
	}
}

// StatsFunc supplies the counters served on /statsz.
type StatsFunc func() map[string]any

// result is the JSON body of /healthz and /readyz responses.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. Safe for concurrent use; checkers and
// the stats source are fixed at construction.
type Handler struct {
	checkers []Checker
	stats    StatsFunc
}

// New creates a [Handler] evaluating the given checkers, in order, on each
// /readyz request.
func New(stats StatsFunc, checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c, stats: stats}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every registered [Checker] passes. Each probe
// runs under a [checkTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Statsz reports the resolver runtime counters.
func (h *Handler) Statsz(w http.ResponseWriter, _ *http.Request) {
	var stats map[string]any
	if h.stats != nil {
		stats = h.stats()
	}
	writeJSON(w, http.StatusOK, stats)
}

// Register adds the health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /statsz", h.Statsz)
}

// writeJSON encodes v with the given status code, falling back to a
// plain-text 500 on encoding failure.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
