package storage

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists settled snapshots in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveSnapshot writes rec and its amounts in one transaction and returns
// the new snapshot id.
func (s *Store) SaveSnapshot(ctx context.Context, rec Snapshot) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO snapshots
			(cycle, settled_at, owner, pool_address, share_user, share_total)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			int64(rec.Cycle),
			rec.SettledAt,
			rec.Owner,
			rec.PoolAddress,
			rec.ShareUser,
			rec.ShareTotal,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		if len(rec.Amounts) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, a := range rec.Amounts {
			batch.Queue(`
				INSERT INTO snapshot_amounts
				(snapshot_id, section, position, symbol, amount)
				VALUES ($1, $2, $3, $4, $5)`,
				id, a.Section, a.Position, a.Symbol, a.Value,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range rec.Amounts {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("batch insert failed: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RecentSnapshots returns up to limit snapshots, newest first, optionally
// restricted to owner.
func (s *Store) RecentSnapshots(ctx context.Context, owner string, limit int) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, cycle, settled_at, owner, pool_address, share_user, share_total
		FROM snapshots
		WHERE $1 = '' OR owner = $1
		ORDER BY settled_at DESC, id DESC
		LIMIT $2`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}

	snaps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Snapshot, error) {
		var snap Snapshot
		var cycle int64
		err := row.Scan(&snap.ID, &cycle, &snap.SettledAt, &snap.Owner, &snap.PoolAddress, &snap.ShareUser, &snap.ShareTotal)
		snap.Cycle = uint64(cycle)
		return snap, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return snaps, nil
	}

	index := make(map[int64]int, len(snaps))
	ids := make([]int64, len(snaps))
	for i, snap := range snaps {
		index[snap.ID] = i
		ids[i] = snap.ID
	}

	rows, err = s.pool.Query(ctx, `
		SELECT snapshot_id, section, position, symbol, amount
		FROM snapshot_amounts
		WHERE snapshot_id = ANY($1)
		ORDER BY snapshot_id, section DESC, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("query amounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var a Amount
		if err := rows.Scan(&id, &a.Section, &a.Position, &a.Symbol, &a.Value); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		i := index[id]
		snaps[i].Amounts = append(snaps[i].Amounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read amounts: %w", err)
	}

	return snaps, nil
}
