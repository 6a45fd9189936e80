package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/matrixise/amm-tracker/internal/display"
	"github.com/matrixise/amm-tracker/internal/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// OwnerRequest is the body of PUT /api/owner. An empty owner clears it.
type OwnerRequest struct {
	Owner string `json:"owner"`
}

// RefreshResponse reports the refresh counter after a bump.
type RefreshResponse struct {
	Counter uint64 `json:"counter"`
}

// HistoryEntry is one persisted settled cycle.
type HistoryEntry struct {
	ID         int64         `json:"id"`
	Cycle      uint64        `json:"cycle"`
	SettledAt  time.Time     `json:"settled_at"`
	Owner      string        `json:"owner,omitempty"`
	Pool       string        `json:"pool,omitempty"`
	ShareUser  *string       `json:"share_user,omitempty"`
	ShareTotal *string       `json:"share_total,omitempty"`
	User       []display.Row `json:"user"`
	PoolRows   []display.Row `json:"pool_details"`
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	details := display.Render(s.cycles.Snapshot(), s.config.Symbols, s.config.DisplayChars)

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := display.WriteText(w, details); err != nil {
			slog.Error("Failed to write details", "error", err)
		}
		return
	}
	respondJSON(w, http.StatusOK, details)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	counter := s.refresh.Fire()
	slog.Info("Refresh requested", "counter", counter, "request_id", requestID(r))
	respondJSON(w, http.StatusAccepted, RefreshResponse{Counter: counter})
}

func (s *Server) handleSetOwner(w http.ResponseWriter, r *http.Request) {
	var req OwnerRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	owner := strings.TrimSpace(req.Owner)
	if owner != "" {
		if !common.IsHexAddress(owner) {
			respondError(w, http.StatusBadRequest, "INVALID_ADDRESS", "owner must be a 20-byte hex address", map[string]string{"owner": owner})
			return
		}
		owner = common.HexToAddress(owner).Hex()
	}

	s.cycles.SetOwner(owner)
	slog.Info("Owner changed", "owner", owner, "request_id", requestID(r))
	respondJSON(w, http.StatusAccepted, OwnerRequest{Owner: owner})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotFound, "HISTORY_DISABLED", "no database configured", nil)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT",
				"limit must be between 1 and "+strconv.Itoa(maxHistoryLimit), map[string]string{"limit": raw})
			return
		}
		limit = n
	}

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = s.cycles.Snapshot().Owner
	} else if !common.IsHexAddress(owner) {
		respondError(w, http.StatusBadRequest, "INVALID_ADDRESS", "owner must be a 20-byte hex address", map[string]string{"owner": owner})
		return
	} else {
		owner = common.HexToAddress(owner).Hex()
	}

	snaps, err := s.history.RecentSnapshots(r.Context(), owner, limit)
	if err != nil {
		slog.Error("Failed to load history", "owner", owner, "error", err)
		respondError(w, http.StatusInternalServerError, "HISTORY_UNAVAILABLE", "failed to load history", nil)
		return
	}

	respondJSON(w, http.StatusOK, lo.Map(snaps, func(snap storage.Snapshot, _ int) HistoryEntry {
		return toHistoryEntry(snap, s.config.DisplayChars)
	}))
}

func toHistoryEntry(snap storage.Snapshot, maxChars int) HistoryEntry {
	section := func(name, prefix string) []display.Row {
		amounts := lo.Filter(snap.Amounts, func(a storage.Amount, _ int) bool { return a.Section == name })
		return lo.Map(amounts, func(a storage.Amount, _ int) display.Row {
			return display.Row{Label: prefix + a.Symbol, Value: display.Truncate(a.Value.String(), maxChars)}
		})
	}

	return HistoryEntry{
		ID:         snap.ID,
		Cycle:      snap.Cycle,
		SettledAt:  snap.SettledAt,
		Owner:      snap.Owner,
		Pool:       snap.PoolAddress,
		ShareUser:  nullString(snap.ShareUser),
		ShareTotal: nullString(snap.ShareTotal),
		User:       section(storage.SectionUser, ""),
		PoolRows:   section(storage.SectionPool, "Total "),
	}
}

func nullString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	return lo.ToPtr(d.Decimal.String())
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
