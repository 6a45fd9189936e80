package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixise/amm-tracker/internal/coordinator"
)

type fakeRPC struct {
	probeErr  error
	endpoints map[string]bool
}

func (f fakeRPC) Probe(context.Context) (string, error) {
	return "https://rpc.example.com", f.probeErr
}

func (f fakeRPC) GetEndpointsHealth() map[string]bool {
	return f.endpoints
}

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

type fakeCycles struct{ snap coordinator.Snapshot }

func (f fakeCycles) Snapshot() coordinator.Snapshot { return f.snap }

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func settledAt(ago time.Duration) coordinator.Snapshot {
	return coordinator.Snapshot{
		State:        coordinator.StateSettled,
		Cycle:        2,
		SettledCycle: 2,
		SettledAt:    now.Add(-ago),
	}
}

func newTestChecker(rpc RPC, snap coordinator.Snapshot, db Database, interval time.Duration) *Checker {
	c := NewChecker(rpc, fakeCycles{snap}, db, interval)
	c.now = func() time.Time { return now }
	c.started = now.Add(-time.Hour)
	return c
}

func TestCheck(t *testing.T) {
	allHealthy := fakeRPC{endpoints: map[string]bool{"a": true, "b": true}}

	tests := []struct {
		name       string
		rpc        fakeRPC
		snap       coordinator.Snapshot
		db         Database
		interval   time.Duration
		want       CheckStatus
		wantChecks map[string]CheckStatus
	}{
		{
			name:     "everything healthy",
			rpc:      allHealthy,
			snap:     settledAt(time.Minute),
			db:       fakeDB{},
			interval: 5 * time.Minute,
			want:     StatusOK,
			wantChecks: map[string]CheckStatus{
				"rpc_endpoints": StatusOK, "refresh": StatusOK, "database": StatusOK,
			},
		},
		{
			name:       "no database configured",
			rpc:        allHealthy,
			snap:       settledAt(time.Minute),
			want:       StatusOK,
			wantChecks: map[string]CheckStatus{"rpc_endpoints": StatusOK, "refresh": StatusOK},
		},
		{
			name:       "startup before first settle",
			rpc:        allHealthy,
			snap:       coordinator.Snapshot{State: coordinator.StateFetching, Cycle: 1},
			interval:   time.Minute,
			want:       StatusOK,
			wantChecks: map[string]CheckStatus{"refresh": StatusOK},
		},
		{
			name: "one endpoint down",
			rpc:  fakeRPC{endpoints: map[string]bool{"a": true, "b": false}},
			snap: settledAt(time.Minute),
			want: StatusDegraded,
			wantChecks: map[string]CheckStatus{
				"rpc_endpoints": StatusDegraded,
			},
		},
		{
			name:       "no endpoint responding",
			rpc:        fakeRPC{probeErr: errors.New("no healthy RPC endpoints available")},
			snap:       settledAt(time.Minute),
			want:       StatusError,
			wantChecks: map[string]CheckStatus{"rpc_endpoints": StatusError},
		},
		{
			name: "last cycle failed",
			rpc:  allHealthy,
			snap: func() coordinator.Snapshot {
				s := settledAt(time.Minute)
				s.State = coordinator.StateFailed
				s.Cycle = 3
				s.Err = errors.New("balanceOf: timeout")
				return s
			}(),
			want:       StatusDegraded,
			wantChecks: map[string]CheckStatus{"refresh": StatusDegraded},
		},
		{
			name:       "settle overdue",
			rpc:        allHealthy,
			snap:       settledAt(11 * time.Minute),
			interval:   5 * time.Minute,
			want:       StatusDegraded,
			wantChecks: map[string]CheckStatus{"refresh": StatusDegraded},
		},
		{
			name:       "one-shot mode ignores age",
			rpc:        allHealthy,
			snap:       settledAt(24 * time.Hour),
			want:       StatusOK,
			wantChecks: map[string]CheckStatus{"refresh": StatusOK},
		},
		{
			name:       "database down",
			rpc:        allHealthy,
			snap:       settledAt(time.Minute),
			db:         fakeDB{err: errors.New("connection refused")},
			want:       StatusError,
			wantChecks: map[string]CheckStatus{"database": StatusError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := newTestChecker(tt.rpc, tt.snap, tt.db, tt.interval).Check(context.Background())

			assert.Equal(t, tt.want, resp.Status)
			for name, status := range tt.wantChecks {
				require.Contains(t, resp.Checks, name)
				assert.Equal(t, status, resp.Checks[name].Status, resp.Checks[name].Message)
			}
			if tt.db == nil {
				assert.NotContains(t, resp.Checks, "database")
			}
		})
	}
}

func TestFailedCycleMessage(t *testing.T) {
	snap := settledAt(time.Minute)
	snap.State = coordinator.StateFailed
	snap.Err = errors.New("totalShare: timeout")

	resp := newTestChecker(fakeRPC{}, snap, nil, 0).Check(context.Background())
	assert.Equal(t, "last refresh failed: totalShare: timeout", resp.Checks["refresh"].Message)
	assert.Equal(t, "1h0m0s", resp.Uptime)
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name     string
		rpc      fakeRPC
		wantCode int
	}{
		{"healthy", fakeRPC{endpoints: map[string]bool{"a": true}}, http.StatusOK},
		{"error", fakeRPC{probeErr: errors.New("down")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newTestChecker(tt.rpc, settledAt(time.Second), nil, 0)
			rec := httptest.NewRecorder()
			checker.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Contains(t, resp.Checks, "rpc_endpoints")
		})
	}
}
