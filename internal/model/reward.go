package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PointCost   int       `json:"point_cost"`
	CreatedAt   time.Time `json:"created_at"`
}

// Redemption snapshots the reward name and cost so history survives reward
// edits and deletes.
type Redemption struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	RewardID   *int64    `json:"reward_id"`
	RewardName string    `json:"reward_name"`
	PointCost  int       `json:"point_cost"`
	CreatedAt  time.Time `json:"timestamp"`
}
