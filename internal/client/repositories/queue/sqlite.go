package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/dbx"
	"github.com/pawkit/pawkit/internal/models"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository persists the mutation queue in the local SQLite store.
// The record snapshot is stored as JSON; deletes carry no snapshot.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, m *models.Mutation) error {
	var snapshot any
	if m.Record != nil {
		b, err := json.Marshal(m.Record)
		if err != nil {
			return fmt.Errorf("failed to marshal record snapshot: %w", err)
		}
		snapshot = string(b)
	}

	query := `INSERT INTO mutations (op, kind, record_id, record, enqueued_at) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		string(m.Op), string(m.Kind), m.RecordID, snapshot, m.EnqueuedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to enqueue mutation: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get assigned seq: %w", err)
	}
	m.Seq = seq
	return nil
}

func (r *SQLiteRepository) Head(ctx context.Context) (*models.Mutation, error) {
	query := `SELECT seq, op, kind, record_id, record, enqueued_at FROM mutations ORDER BY seq LIMIT 1`
	m, err := scanMutation(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select queue head: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, seq int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mutations WHERE seq = ?`, seq)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) All(ctx context.Context) ([]*models.Mutation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq, op, kind, record_id, record, enqueued_at FROM mutations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue entries: %w", err)
	}
	defer rows.Close()

	var result []*models.Mutation
	for rows.Next() {
		m, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMutation(row rowScanner) (*models.Mutation, error) {
	var m models.Mutation
	var op, kind, enqueuedAt string
	var snapshot sql.NullString

	if err := row.Scan(&m.Seq, &op, &kind, &m.RecordID, &snapshot, &enqueuedAt); err != nil {
		return nil, err
	}

	m.Op = models.Op(op)
	m.Kind = models.Kind(kind)

	if snapshot.Valid {
		var rec models.Record
		if err := json.Unmarshal([]byte(snapshot.String), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record snapshot: %w", err)
		}
		m.Record = &rec
	}

	ts, err := time.Parse(time.RFC3339Nano, enqueuedAt)
	if err != nil {
		return nil, err
	}
	m.EnqueuedAt = ts
	return &m, nil
}
