package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-desk/internal/outbox"
)

const (
	claimPendingSQL = `SELECT id, event_id, event_type, aggregate_key, payload, created_at, attempts
		FROM outbox
		WHERE sent_at IS NULL AND attempts < $2
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	markSentSQL = `UPDATE outbox SET sent_at = now() WHERE id = ANY($1)`

	markFailedSQL = `UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE id = ANY($1)`

	countPendingSQL = `SELECT count(*) FROM outbox WHERE sent_at IS NULL`
)

var _ outbox.Store = (*OutboxRepository)(nil)

// OutboxRepository implements outbox.Store backed by PostgreSQL.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository returns an OutboxRepository that uses the given pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Claim locks up to limit pending records below maxAttempts, skipping rows
// locked by other relays, and hands them to fn. Records are marked sent when
// fn succeeds. A single record fn fails on has its attempt counter bumped and
// the error stored; rows at maxAttempts stay unsent and are no longer claimed.
func (r *OutboxRepository) Claim(ctx context.Context, limit, maxAttempts int, fn func(ctx context.Context, recs []outbox.Record) error) (int, error) {
	var (
		n          int
		publishErr error
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, claimPendingSQL, limit, maxAttempts)
		if err != nil {
			return fmt.Errorf("claiming outbox records: %w", err)
		}
		recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Record, error) {
			var rec outbox.Record
			err := row.Scan(&rec.ID, &rec.EventID, &rec.Type, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.Attempts)
			return rec, err
		})
		if err != nil {
			return fmt.Errorf("scanning outbox records: %w", err)
		}
		if len(recs) == 0 {
			return nil
		}

		ids := make([]int64, len(recs))
		for i, rec := range recs {
			ids[i] = rec.ID
		}
		if publishErr = fn(ctx, recs); publishErr != nil {
			if len(recs) > 1 {
				return nil
			}
			if _, err := tx.Exec(ctx, markFailedSQL, ids, publishErr.Error()); err != nil {
				return fmt.Errorf("marking outbox records failed: %w", err)
			}
			return nil
		}
		if _, err := tx.Exec(ctx, markSentSQL, ids); err != nil {
			return fmt.Errorf("marking outbox records sent: %w", err)
		}
		n = len(recs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, publishErr
}

// Pending returns the number of unsent records.
func (r *OutboxRepository) Pending(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countPendingSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting pending outbox records: %w", err)
	}
	return n, nil
}
