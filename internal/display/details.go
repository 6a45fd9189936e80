package display

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"

	"github.com/matrixise/amm-tracker/internal/coordinator"
)

const (
	// Loading is shown for values no cycle has settled yet.
	Loading = "loading..."
	// Unavailable is shown when a settled cycle had nothing to fetch,
	// e.g. no pool is configured.
	Unavailable = "-"
)

// Row is one labelled value.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Details is the presentation view of a coordinator snapshot.
type Details struct {
	State     string     `json:"state"`
	Cycle     uint64     `json:"cycle"`
	Owner     string     `json:"owner,omitempty"`
	Pool      string     `json:"pool,omitempty"`
	User      []Row      `json:"user"`
	PoolRows  []Row      `json:"pool_details"`
	Stale     bool       `json:"stale"`
	Error     string     `json:"error,omitempty"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// Render builds the view of snap, truncating every amount to maxChars.
// symbols are the currently configured tokens, used for placeholder rows
// until the first cycle settles.
func Render(snap coordinator.Snapshot, symbols []string, maxChars int) Details {
	d := Details{
		State: snap.State.String(),
		Cycle: snap.Cycle,
		Owner: snap.Owner,
		Pool:  snap.PoolAddress,
		Stale: snap.Loaded() && snap.SettledCycle != snap.Cycle,
	}
	if snap.Err != nil {
		d.Error = snap.Err.Error()
	}

	if !snap.Loaded() {
		d.User = append(placeholders(symbols, ""), Row{Label: "Share", Value: Loading})
		d.PoolRows = append(placeholders(symbols, "Total "), Row{Label: "Total Share", Value: Loading})
		return d
	}

	settledAt := snap.SettledAt
	d.SettledAt = &settledAt

	d.User = rows(snap.Symbols, snap.Balances, "", maxChars)
	d.PoolRows = rows(snap.Symbols, snap.Reserves, "Total ", maxChars)

	userShare, totalShare := Unavailable, Unavailable
	if snap.Share != nil {
		userShare = Truncate(snap.Share.User, maxChars)
		totalShare = Truncate(snap.Share.Total, maxChars)
	}
	d.User = append(d.User, Row{Label: "Share", Value: userShare})
	d.PoolRows = append(d.PoolRows, Row{Label: "Total Share", Value: totalShare})
	return d
}

func placeholders(symbols []string, prefix string) []Row {
	return lo.Map(symbols, func(sym string, _ int) Row {
		return Row{Label: prefix + sym, Value: Loading}
	})
}

// rows pairs values with their symbols. values may be shorter than symbols
// (no owner, no pool); only fetched values get a row.
func rows(symbols, values []string, prefix string, maxChars int) []Row {
	return lo.Map(values, func(v string, i int) Row {
		label := Loading
		if i < len(symbols) {
			label = symbols[i]
		}
		return Row{Label: prefix + label, Value: Truncate(v, maxChars)}
	})
}

// WriteText prints d as an aligned two-column table.
func WriteText(w io.Writer, d Details) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Your Details")
	for _, r := range d.User {
		fmt.Fprintf(tw, "  %s:\t%s\n", r.Label, r.Value)
	}
	fmt.Fprintln(tw, "Pool Details")
	for _, r := range d.PoolRows {
		fmt.Fprintf(tw, "  %s:\t%s\n", r.Label, r.Value)
	}

	status := fmt.Sprintf("State: %s (cycle %d)", d.State, d.Cycle)
	if d.Stale {
		status += ", showing last settled values"
	}
	fmt.Fprintln(tw, status)
	if d.Error != "" {
		fmt.Fprintf(tw, "Error: %s\n", d.Error)
	}

	return tw.Flush()
}
