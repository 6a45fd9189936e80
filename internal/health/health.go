package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matrixise/amm-tracker/internal/coordinator"
)

// RPC reports on the ledger endpoints.
type RPC interface {
	Probe(ctx context.Context) (string, error)
	GetEndpointsHealth() map[string]bool
}

// Database is an optional history store.
type Database interface {
	Ping(ctx context.Context) error
}

// Cycles exposes the coordinator view-state.
type Cycles interface {
	Snapshot() coordinator.Snapshot
}

// Checker performs health checks on application dependencies
type Checker struct {
	rpc      RPC
	cycles   Cycles
	db       Database
	interval time.Duration
	now      func() time.Time
	started  time.Time
}

// NewChecker creates a health checker. db may be nil when history is
// disabled; interval 0 disables the staleness check.
func NewChecker(rpc RPC, cycles Cycles, db Database, interval time.Duration) *Checker {
	return &Checker{
		rpc:      rpc,
		cycles:   cycles,
		db:       db,
		interval: interval,
		now:      time.Now,
		started:  time.Now(),
	}
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// worse returns the more severe of a and b.
func worse(a, b CheckStatus) CheckStatus {
	rank := map[CheckStatus]int{StatusOK: 0, StatusDegraded: 1, StatusError: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Check performs all health checks and returns the aggregated status.
// A failing refresh cycle degrades the service; unreachable dependencies
// make it an error.
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := map[string]CheckDetail{
		"rpc_endpoints": c.checkRPC(ctx),
		"refresh":       c.checkCycles(),
	}
	if c.db != nil {
		checks["database"] = c.checkDatabase(ctx)
	}

	overall := StatusOK
	for _, detail := range checks {
		overall = worse(overall, detail.Status)
	}

	return HealthResponse{
		Status:    overall,
		Timestamp: c.now(),
		Checks:    checks,
		Uptime:    c.now().Sub(c.started).Round(time.Second).String(),
	}
}

func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{Status: StatusError, Message: "database unreachable: " + err.Error()}
	}
	return CheckDetail{Status: StatusOK, Message: "database connection healthy"}
}

func (c *Checker) checkRPC(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if url, err := c.rpc.Probe(ctx); err != nil {
		slog.Error("Health check: RPC probe failed", "url", url, "error", err)
		return CheckDetail{Status: StatusError, Message: "no RPC endpoint responding: " + err.Error()}
	}

	endpoints := c.rpc.GetEndpointsHealth()
	healthy := 0
	for _, ok := range endpoints {
		if ok {
			healthy++
		}
	}
	if healthy == len(endpoints) {
		return CheckDetail{Status: StatusOK, Message: "all RPC endpoints healthy"}
	}
	return CheckDetail{
		Status:  StatusDegraded,
		Message: fmt.Sprintf("%d/%d RPC endpoints healthy", healthy, len(endpoints)),
	}
}

func (c *Checker) checkCycles() CheckDetail {
	snap := c.cycles.Snapshot()

	if snap.State == coordinator.StateFailed {
		msg := "last refresh failed"
		if snap.Err != nil {
			msg += ": " + snap.Err.Error()
		}
		return CheckDetail{Status: StatusDegraded, Message: msg}
	}

	if !snap.Loaded() {
		return CheckDetail{Status: StatusOK, Message: "no refresh settled yet (startup)"}
	}

	since := c.now().Sub(snap.SettledAt)
	if c.interval > 0 && since > 2*c.interval {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no refresh settled in %s (expected every %s)", since.Round(time.Second), c.interval),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("cycle %d settled %s ago", snap.SettledCycle, since.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := c.Check(r.Context())

		code := http.StatusOK
		if status.Status == StatusError {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
