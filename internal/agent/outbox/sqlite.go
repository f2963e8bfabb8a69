package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldops/shiftsync/internal/agent/models"
	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/dbx"
)

// SQLiteQueue implements Queue over a dbx.DBTX. Creation order is kept by a
// monotonic seq column; every read orders by it. Writes go through SQLite
// transactions, so overlapping enqueues from two features (a location tick
// and a photo capture) can no longer lose an item to a read-modify-write
// race.
type SQLiteQueue struct {
	db dbx.DBTX
}

// NewSQLiteQueue returns a queue bound to the given DBTX.
func NewSQLiteQueue(db dbx.DBTX) *SQLiteQueue {
	return &SQLiteQueue{db: db}
}

func (q *SQLiteQueue) Enqueue(ctx context.Context, item *models.SyncItem) error {
	query := `INSERT INTO sync_queue (id, kind, payload, attempts, created_at, last_attempt_at)
		VALUES (?, ?, ?, ?, ?, NULL)`
	_, err := q.db.ExecContext(ctx, query,
		item.ID, string(item.Kind), item.Payload, item.Attempts,
		item.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to enqueue sync item: %w", err)
	}
	return nil
}

func (q *SQLiteQueue) List(ctx context.Context) ([]models.SyncItem, error) {
	return q.selectItems(ctx,
		`SELECT id, kind, payload, attempts, created_at, last_attempt_at
		 FROM sync_queue ORDER BY seq`)
}

func (q *SQLiteQueue) RetryableItems(ctx context.Context) ([]models.SyncItem, error) {
	return q.selectItems(ctx,
		`SELECT id, kind, payload, attempts, created_at, last_attempt_at
		 FROM sync_queue WHERE attempts < ? ORDER BY seq`, common.RetryCeiling)
}

func (q *SQLiteQueue) selectItems(ctx context.Context, query string, args ...any) ([]models.SyncItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select sync items: %w", err)
	}
	defer rows.Close()

	var result []models.SyncItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanItem(rows *sql.Rows) (models.SyncItem, error) {
	var (
		item      models.SyncItem
		kind      string
		createdAt string
		lastAt    sql.NullString
	)
	if err := rows.Scan(&item.ID, &kind, &item.Payload, &item.Attempts, &createdAt, &lastAt); err != nil {
		return models.SyncItem{}, err
	}
	item.Kind = models.SyncKind(kind)

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.SyncItem{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	item.CreatedAt = ts

	if lastAt.Valid {
		la, err := time.Parse(time.RFC3339Nano, lastAt.String)
		if err != nil {
			return models.SyncItem{}, fmt.Errorf("failed to parse last_attempt_at: %w", err)
		}
		item.LastAttemptAt = &la
	}
	return item, nil
}

// Remove deletes one item. Deleting an id that is already gone is a no-op:
// a retried drain pass may race its own earlier success.
func (q *SQLiteQueue) Remove(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id=?`, id); err != nil {
		return fmt.Errorf("failed to remove sync item: %w", err)
	}
	return nil
}

func (q *SQLiteQueue) RecordAttempt(ctx context.Context, id string) error {
	query := `UPDATE sync_queue SET attempts = attempts + 1, last_attempt_at = ? WHERE id=?`
	_, err := q.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to record sync attempt: %w", err)
	}
	return nil
}

func (q *SQLiteQueue) Stats(ctx context.Context) (models.QueueStats, error) {
	query := `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN attempts < ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN attempts >= ? THEN 1 ELSE 0 END), 0)
	FROM sync_queue`

	var stats models.QueueStats
	row := q.db.QueryRowContext(ctx, query, common.RetryCeiling, common.RetryCeiling)
	if err := row.Scan(&stats.Total, &stats.Pending, &stats.Failed); err != nil {
		return models.QueueStats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return stats, nil
}

// RequeueFailed gives permanently failed items a fresh set of attempts.
// This is the manual repair path for events that exhausted the ceiling.
func (q *SQLiteQueue) RequeueFailed(ctx context.Context) (int, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE sync_queue SET attempts = 0 WHERE attempts >= ?`, common.RetryCeiling)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue failed items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
