package storage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matrixise/amm-tracker/internal/coordinator"
)

// Amount sections.
const (
	SectionUser = "user"
	SectionPool = "pool"
)

// Snapshot is a persisted settled cycle.
type Snapshot struct {
	ID          int64
	Cycle       uint64
	SettledAt   time.Time
	Owner       string
	PoolAddress string
	ShareUser   decimal.NullDecimal
	ShareTotal  decimal.NullDecimal
	Amounts     []Amount
}

// Amount is one formatted value of a snapshot, stored as NUMERIC.
type Amount struct {
	Section  string
	Position int
	Symbol   string
	Value    decimal.Decimal
}

// FromSnapshot converts a settled coordinator snapshot. Every amount must be
// a plain decimal string, as produced by the formatter.
func FromSnapshot(snap coordinator.Snapshot) (Snapshot, error) {
	rec := Snapshot{
		Cycle:       snap.SettledCycle,
		SettledAt:   snap.SettledAt.UTC(),
		Owner:       snap.Owner,
		PoolAddress: snap.PoolAddress,
	}

	sections := []struct {
		name   string
		values []string
	}{
		{SectionUser, snap.Balances},
		{SectionPool, snap.Reserves},
	}
	for _, section := range sections {
		for i, v := range section.values {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return Snapshot{}, fmt.Errorf("%s amount %d: %w", section.name, i, err)
			}
			symbol := ""
			if i < len(snap.Symbols) {
				symbol = snap.Symbols[i]
			}
			rec.Amounts = append(rec.Amounts, Amount{
				Section:  section.name,
				Position: i,
				Symbol:   symbol,
				Value:    d,
			})
		}
	}

	if snap.Share != nil {
		user, err := decimal.NewFromString(snap.Share.User)
		if err != nil {
			return Snapshot{}, fmt.Errorf("user share: %w", err)
		}
		total, err := decimal.NewFromString(snap.Share.Total)
		if err != nil {
			return Snapshot{}, fmt.Errorf("total share: %w", err)
		}
		rec.ShareUser = decimal.NewNullDecimal(user)
		rec.ShareTotal = decimal.NewNullDecimal(total)
	}

	return rec, nil
}
