// Package handler serves liveness and readiness probes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"vyre/backend/internal/platform/respond"
)

// checkTimeout bounds each readiness dependency check.
const checkTimeout = 2 * time.Second

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Handler serves /health and /health/ready.
type Handler struct {
	checks map[string]Check
}

// NewHandler returns a Handler. Nil checks are skipped, so optional dependencies can be passed unconditionally.
func NewHandler(checks map[string]Check) *Handler {
	h := &Handler{checks: map[string]Check{}}
	for name, c := range checks {
		if c != nil {
			h.checks[name] = c
		}
	}
	return h
}

// Live handles GET /health. It only reports that the process is serving.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, "Server is running", map[string]any{"timestamp": time.Now().UTC()})
}

// Ready handles GET /health/ready: 200 when every dependency check passes, 503 otherwise.
// Failure causes are logged, not returned.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	results := h.run(r.Context())
	status := http.StatusOK
	for _, res := range results {
		if res != "ok" {
			status = http.StatusServiceUnavailable
		}
	}
	if status != http.StatusOK {
		respond.JSON(w, status, map[string]any{"status": "error", "message": "Service not ready", "checks": results})
		return
	}
	respond.OK(w, "Service ready", map[string]any{"checks": results})
}

func (h *Handler) run(ctx context.Context) map[string]string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]string, len(names))
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			res := "ok"
			if err := check(cctx); err != nil {
				slog.WarnContext(ctx, "health: dependency not ready", "check", name, "err", err)
				res = "unavailable"
			}
			mu.Lock()
			out[name] = res
			mu.Unlock()
		}(name, h.checks[name])
	}
	wg.Wait()
	return out
}
