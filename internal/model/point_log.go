package model

import "time"

type ActionKind string

const (
	ActionCredit     ActionKind = "credit"
	ActionDebit      ActionKind = "debit"
	ActionRedemption ActionKind = "redemption"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionCredit, ActionDebit, ActionRedemption:
		return true
	}
	return false
}

type PointLogEntry struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Kind      ActionKind `json:"action_type"`
	Delta     int        `json:"points"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"timestamp"`
}
