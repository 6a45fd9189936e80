package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/matrixise/amm-tracker/internal/aggregator"
)

// State is the coordinator's position in its fetch cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateSettled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Trigger names the input change that started a cycle.
type Trigger string

const (
	TriggerOwner   Trigger = "owner"
	TriggerTokens  Trigger = "tokens"
	TriggerPool    Trigger = "pool"
	TriggerRefresh Trigger = "refresh"
	TriggerConfig  Trigger = "config"
)

// Snapshot is a self-consistent copy of the view-state.
//
// Balances, Reserves and Share always come from the same settled cycle and
// belong to Owner and Symbols, which may lag the current inputs while a
// newer cycle is in flight or has failed. Balances is nil until the first
// cycle settles.
type Snapshot struct {
	State        State
	Cycle        uint64
	SettledCycle uint64
	Owner        string
	PoolAddress  string
	Symbols      []string
	Balances     []string
	Reserves     []string
	Share        *aggregator.ShareResult
	SettledAt    time.Time
	Err          error
}

// Loaded reports whether at least one cycle has settled.
func (s Snapshot) Loaded() bool {
	return s.SettledCycle > 0
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Symbols = slices.Clone(s.Symbols)
	c.Balances = slices.Clone(s.Balances)
	c.Reserves = slices.Clone(s.Reserves)
	if s.Share != nil {
		share := *s.Share
		c.Share = &share
	}
	return c
}

// BalanceFetcher is implemented by aggregator.BalanceAggregator.
type BalanceFetcher interface {
	FetchBalances(ctx context.Context, owner string, tokens []aggregator.Token) ([]string, error)
}

// PoolFetcher is implemented by aggregator.PoolAggregator.
type PoolFetcher interface {
	FetchShare(ctx context.Context, pool *aggregator.Pool, owner string, prev *aggregator.ShareResult) (*aggregator.ShareResult, error)
	FetchReserves(ctx context.Context, pool *aggregator.Pool, tokens []aggregator.Token) ([]string, error)
}

// Coordinator re-runs the aggregators whenever the owner, the token set,
// the pool or the external refresh counter changes. Only the most recent
// cycle may write the view-state; results of superseded cycles are dropped.
type Coordinator struct {
	balances BalanceFetcher
	pool     PoolFetcher
	observer Observer

	mu      sync.Mutex
	owner   string
	tokens  []aggregator.Token
	poolRef *aggregator.Pool
	refresh uint64
	cycle   uint64
	cancel  context.CancelFunc
	snap    Snapshot
	closed  bool

	wg sync.WaitGroup
}

// New creates an idle coordinator. observer may be nil.
func New(balances BalanceFetcher, pool PoolFetcher, observer Observer) *Coordinator {
	if observer == nil {
		observer = Observers{}
	}
	return &Coordinator{
		balances: balances,
		pool:     pool,
		observer: observer,
	}
}

// Configure sets owner, tokens and pool together and starts a single cycle
// if any of them changed or no cycle has run yet.
func (c *Coordinator) Configure(owner string, tokens []aggregator.Token, pool *aggregator.Pool) {
	c.mu.Lock()
	if c.cycle > 0 && c.owner == owner && sameTokens(c.tokens, tokens) && samePool(c.poolRef, pool) {
		c.mu.Unlock()
		return
	}
	c.owner = owner
	c.tokens = slices.Clone(tokens)
	c.poolRef = pool
	c.startLocked(TriggerConfig)
}

// Prime sets owner, tokens and pool without starting a cycle. The first
// trigger after Prime fetches them.
func (c *Coordinator) Prime(owner string, tokens []aggregator.Token, pool *aggregator.Pool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = owner
	c.tokens = slices.Clone(tokens)
	c.poolRef = pool
}

// SetOwner changes the owner address. An empty owner is valid.
func (c *Coordinator) SetOwner(owner string) {
	c.mu.Lock()
	if c.owner == owner && c.cycle > 0 {
		c.mu.Unlock()
		return
	}
	c.owner = owner
	c.startLocked(TriggerOwner)
}

// SetTokens replaces the tracked token set. A set with the same query
// identities in the same order does not trigger a cycle.
func (c *Coordinator) SetTokens(tokens []aggregator.Token) {
	c.mu.Lock()
	if sameTokens(c.tokens, tokens) && c.cycle > 0 {
		c.mu.Unlock()
		return
	}
	c.tokens = slices.Clone(tokens)
	c.startLocked(TriggerTokens)
}

// SetPool replaces the tracked pool. nil means no pool.
func (c *Coordinator) SetPool(pool *aggregator.Pool) {
	c.mu.Lock()
	if samePool(c.poolRef, pool) && c.cycle > 0 {
		c.mu.Unlock()
		return
	}
	c.poolRef = pool
	c.startLocked(TriggerPool)
}

// Refresh observes the external refresh counter. A value greater than the
// last one seen starts a new cycle; anything else is ignored.
func (c *Coordinator) Refresh(counter uint64) {
	c.mu.Lock()
	if counter <= c.refresh {
		c.mu.Unlock()
		return
	}
	c.refresh = counter
	c.startLocked(TriggerRefresh)
}

// RefreshCounter returns the last refresh counter value observed.
func (c *Coordinator) RefreshCounter() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh
}

// Snapshot returns a copy of the current view-state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.clone()
}

// Wait blocks until every started cycle has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close invalidates the running cycle and waits for in-flight queries.
// Triggers after Close are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.cycle++
	c.mu.Unlock()
	c.wg.Wait()
}

// startLocked must be called with c.mu held; it releases it.
func (c *Coordinator) startLocked(trigger Trigger) {
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
	}

	c.cycle++
	cycle := c.cycle
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	in := cycleInput{
		owner:  c.owner,
		tokens: slices.Clone(c.tokens),
		pool:   c.poolRef,
		share:  c.snap.Share,
	}
	if c.snap.Owner != c.owner || c.snap.PoolAddress != poolAddress(c.poolRef) {
		// A share belongs to one owner in one pool.
		in.share = nil
	}

	c.snap.State = StateFetching
	c.snap.Cycle = cycle
	c.wg.Add(1)
	// Observers see cycle starts in id order.
	c.observer.CycleStarted(cycle, trigger)
	c.mu.Unlock()

	slog.Debug("Aggregation cycle started", "cycle", cycle, "trigger", trigger, "owner", in.owner, "tokens", len(in.tokens))

	go func() {
		defer c.wg.Done()
		defer cancel()
		c.run(ctx, cycle, in)
	}()
}

type cycleInput struct {
	owner  string
	tokens []aggregator.Token
	pool   *aggregator.Pool
	share  *aggregator.ShareResult
}

func (c *Coordinator) run(ctx context.Context, cycle uint64, in cycleInput) {
	start := time.Now()

	var (
		balances []string
		reserves []string
		share    *aggregator.ShareResult
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		balances, err = c.balances.FetchBalances(ctx, in.owner, in.tokens)
		return err
	})
	g.Go(func() error {
		var err error
		share, err = c.pool.FetchShare(ctx, in.pool, in.owner, in.share)
		return err
	})
	g.Go(func() error {
		var err error
		reserves, err = c.pool.FetchReserves(ctx, in.pool, in.tokens)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	if cycle != c.cycle {
		c.mu.Unlock()
		slog.Debug("Stale aggregation result discarded", "cycle", cycle, "owner", in.owner, "error", err)
		c.observer.CycleDiscarded(cycle)
		return
	}

	if err != nil {
		c.snap.State = StateFailed
		c.snap.Err = err
		c.mu.Unlock()

		slog.Error("Aggregation cycle failed", "cycle", cycle, "owner", in.owner, "error", err)
		c.observer.CycleFailed(cycle, err)
		return
	}

	c.snap = Snapshot{
		State:        StateSettled,
		Cycle:        cycle,
		SettledCycle: cycle,
		Owner:        in.owner,
		Symbols:      lo.Map(in.tokens, func(t aggregator.Token, _ int) string { return t.Symbol }),
		Balances:     balances,
		Reserves:     reserves,
		Share:        share,
		SettledAt:    time.Now().UTC(),
	}
	c.snap.PoolAddress = poolAddress(in.pool)
	settled := c.snap.clone()
	c.mu.Unlock()

	slog.Info("Aggregation cycle settled",
		"cycle", cycle,
		"owner", in.owner,
		"tokens", len(balances),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	c.observer.CycleSettled(settled, time.Since(start))
}

func sameTokens(a, b []aggregator.Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameQuery(a[i].Query, b[i].Query) || a[i].Address != b[i].Address {
			return false
		}
	}
	return true
}

func samePool(a, b *aggregator.Pool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !sameQuery(a.Query, b.Query) || a.Address != b.Address {
		return false
	}
	if a.SharePrecision == nil || b.SharePrecision == nil {
		return a.SharePrecision == b.SharePrecision
	}
	return a.SharePrecision.Cmp(b.SharePrecision) == 0
}

func poolAddress(p *aggregator.Pool) string {
	if p == nil {
		return ""
	}
	return p.Address
}

// sameQuery compares query identities. Values that cannot be compared are
// never the same, so replacing them always starts a cycle.
func sameQuery(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
