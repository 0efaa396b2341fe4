package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/pointjar/internal/model"
)

type RedemptionStore struct {
	db DBTX
}

func NewRedemptionStore(db DBTX) *RedemptionStore {
	return &RedemptionStore{db: db}
}

func (s *RedemptionStore) WithTx(tx *sql.Tx) *RedemptionStore {
	return &RedemptionStore{db: tx}
}

func scanRedemption(sc scanner) (*model.Redemption, error) {
	var r model.Redemption
	var rewardID sql.NullInt64
	err := sc.Scan(&r.ID, &r.UserID, &r.Username, &rewardID, &r.RewardName, &r.PointCost, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if rewardID.Valid {
		r.RewardID = &rewardID.Int64
	}
	return &r, nil
}

const redemptionSelect = `SELECT r.id, r.user_id, u.username, r.reward_id, r.reward_name, r.point_cost, r.created_at
	FROM redemptions r JOIN users u ON u.id = r.user_id`

func (s *RedemptionStore) Create(ctx context.Context, userID, rewardID int64, rewardName string, pointCost int) (*model.Redemption, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO redemptions (user_id, reward_id, reward_name, point_cost) VALUES (?, ?, ?, ?)`,
		userID, rewardID, rewardName, pointCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, redemptionSelect+` WHERE r.id = ?`, id)
	r, err := scanRedemption(row)
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return r, nil
}

// List returns redemptions across all users, newest first. limit <= 0 means
// no limit.
func (s *RedemptionStore) List(ctx context.Context, limit int) ([]model.Redemption, error) {
	rows, err := s.db.QueryContext(ctx,
		redemptionSelect+` ORDER BY r.created_at DESC, r.id DESC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()
	return collectRedemptions(rows)
}

// ListByUser returns one user's redemptions, newest first. limit <= 0 means
// no limit.
func (s *RedemptionStore) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Redemption, error) {
	rows, err := s.db.QueryContext(ctx,
		redemptionSelect+` WHERE r.user_id = ? ORDER BY r.created_at DESC, r.id DESC LIMIT ?`, userID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list user redemptions: %w", err)
	}
	defer rows.Close()
	return collectRedemptions(rows)
}

func collectRedemptions(rows *sql.Rows) ([]model.Redemption, error) {
	var out []model.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// sqlLimit maps "no limit" to SQLite's LIMIT -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
