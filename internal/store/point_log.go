package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/pointjar/internal/model"
)

type PointLogStore struct {
	db DBTX
}

func NewPointLogStore(db DBTX) *PointLogStore {
	return &PointLogStore{db: db}
}

func (s *PointLogStore) WithTx(tx *sql.Tx) *PointLogStore {
	return &PointLogStore{db: tx}
}

func scanPointLog(sc scanner) (*model.PointLogEntry, error) {
	var e model.PointLogEntry
	err := sc.Scan(&e.ID, &e.UserID, &e.Kind, &e.Delta, &e.Reason, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const pointLogCols = `id, user_id, kind, delta, reason, created_at`

func (s *PointLogStore) Append(ctx context.Context, userID int64, kind model.ActionKind, delta int, reason string) (*model.PointLogEntry, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO point_logs (user_id, kind, delta, reason) VALUES (?, ?, ?, ?)`,
		userID, kind, delta, reason,
	)
	if err != nil {
		return nil, fmt.Errorf("insert point log: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+pointLogCols+` FROM point_logs WHERE id = ?`, id)
	e, err := scanPointLog(row)
	if err != nil {
		return nil, fmt.Errorf("get point log: %w", err)
	}
	return e, nil
}

// ListByUser returns a user's log entries, newest first. limit <= 0 returns
// the full history.
func (s *PointLogStore) ListByUser(ctx context.Context, userID int64, limit int) ([]model.PointLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pointLogCols+` FROM point_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, sqlLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list point logs: %w", err)
	}
	defer rows.Close()

	var entries []model.PointLogEntry
	for rows.Next() {
		e, err := scanPointLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan point log: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// SumByUser returns the sum of all deltas logged for a user.
func (s *PointLogStore) SumByUser(ctx context.Context, userID int64) (int, error) {
	var sum int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM point_logs WHERE user_id = ?`, userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum point logs: %w", err)
	}
	return sum, nil
}
