// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const probeTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

type namedChecker struct {
	name    string
	checker Checker
}

// Handler serves liveness and readiness probes. Readiness fans out to the
// database, redis, and the blob store so a dead dependency pulls the pod
// out of rotation.
type Handler struct {
	deps     []namedChecker
	ready    atomic.Bool
	shutdown atomic.Bool
}

func NewHandler(db, redis, storage Checker) *Handler {
	h := &Handler{
		deps: []namedChecker{
			{name: "database", checker: db},
			{name: "redis", checker: redis},
			{name: "storage", checker: storage},
		},
	}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

// gate reports the short-circuit status, or "" when probes should run.
func (h *Handler) gate() string {
	if h.shutdown.Load() {
		return "shutting_down"
	}
	if !h.ready.Load() {
		return "not_ready"
	}
	return ""
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "shutting_down",
		})
		return
	}

	writeStatus(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if blocked := h.gate(); blocked != "" {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: blocked,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	checks := h.probeAll(ctx)

	status, code := "ok", http.StatusOK
	for _, check := range checks {
		if !check.Healthy {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	writeStatus(w, code, ReadinessResponse{
		Status: status,
		Checks: checks,
	})
}

// probeAll pings every dependency concurrently; the slowest one bounds
// the response time, not the sum.
func (h *Handler) probeAll(ctx context.Context) []HealthCheck {
	checks := make([]HealthCheck, len(h.deps))

	var wg sync.WaitGroup
	for i, dep := range h.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = probe(ctx, dep)
		}()
	}
	wg.Wait()

	return checks
}

func probe(ctx context.Context, dep namedChecker) HealthCheck {
	if dep.checker == nil {
		return HealthCheck{
			Name:    dep.name,
			Message: dep.name + " checker not configured",
		}
	}

	start := time.Now()
	err := dep.checker.Ping(ctx)

	check := HealthCheck{
		Name:    dep.name,
		Healthy: err == nil,
		Latency: time.Since(start).String(),
	}
	if err != nil {
		check.Message = "ping failed"
	}

	return check
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
