// Package ledger owns every change to a user's point balance. Each change
// runs in a single transaction together with its point log entry and
// notifications, so a failed step leaves nothing behind.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/pointjar/internal/metrics"
	"github.com/dukerupert/pointjar/internal/model"
	"github.com/dukerupert/pointjar/internal/store"
)

// Action is the admin-facing direction of a manual adjustment.
type Action string

const (
	ActionAdd      Action = "Add"
	ActionSubtract Action = "Subtract"
)

// Publisher is told about committed changes. Calls happen after commit and
// must not block.
type Publisher interface {
	BalanceChanged(userID int64, newBalance int)
	NotificationsCreated(ctx context.Context, notes []model.Notification)
}

type Ledger struct {
	db          *sql.DB
	users       *store.UserStore
	logs        *store.PointLogStore
	notes       *store.NotificationStore
	rewards     *store.RewardStore
	redemptions *store.RedemptionStore
	publisher   Publisher
	logger      *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Ledger {
	return &Ledger{
		db:          db,
		users:       store.NewUserStore(db),
		logs:        store.NewPointLogStore(db),
		notes:       store.NewNotificationStore(db),
		rewards:     store.NewRewardStore(db),
		redemptions: store.NewRedemptionStore(db),
		logger:      logger.With("component", "ledger"),
	}
}

// SetPublisher registers the receiver of post-commit events. nil disables
// publishing.
func (l *Ledger) SetPublisher(p Publisher) {
	l.publisher = p
}

// Result describes a committed balance change.
type Result struct {
	NewBalance    int
	Entry         *model.PointLogEntry
	Notifications []model.Notification
}

// RedeemResult describes a committed redemption.
type RedeemResult struct {
	NewBalance    int
	Redemption    *model.Redemption
	Entry         *model.PointLogEntry
	Notifications []model.Notification
}

// txStores are the stores bound to one transaction.
type txStores struct {
	users       *store.UserStore
	logs        *store.PointLogStore
	notes       *store.NotificationStore
	rewards     *store.RewardStore
	redemptions *store.RedemptionStore
}

func (l *Ledger) inTx(ctx context.Context, fn func(s txStores) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	s := txStores{
		users:       l.users.WithTx(tx),
		logs:        l.logs.WithTx(tx),
		notes:       l.notes.WithTx(tx),
		rewards:     l.rewards.WithTx(tx),
		redemptions: l.redemptions.WithTx(tx),
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// applyDelta changes the balance, appends the log entry and notifies the
// user with message. It must run inside inTx.
func applyDelta(ctx context.Context, s txStores, userID int64, delta int, reason string, kind model.ActionKind, message string) (*Result, error) {
	newBalance, ok, err := s.users.AddBalance(ctx, userID, delta)
	if err != nil {
		return nil, err
	}
	if !ok {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, ErrUserNotFound
		}
		return nil, ErrInsufficientBalance
	}

	entry, err := s.logs.Append(ctx, userID, kind, delta, reason)
	if err != nil {
		return nil, err
	}
	note, err := s.notes.Create(ctx, userID, message)
	if err != nil {
		return nil, err
	}
	return &Result{NewBalance: newBalance, Entry: entry, Notifications: []model.Notification{*note}}, nil
}

// ApplyDelta adds delta (which may be negative) to a user's balance. The
// balance never drops below zero: such a change fails with
// ErrInsufficientBalance and writes nothing.
func (l *Ledger) ApplyDelta(ctx context.Context, userID int64, delta int, reason string, kind model.ActionKind) (*Result, error) {
	if !kind.Valid() {
		return nil, invalid("action_type", "unknown action kind")
	}
	if delta == 0 {
		return nil, invalid("points", "must not be zero")
	}
	if delta > MaxPoints || delta < -MaxPoints {
		return nil, invalid("points", fmt.Sprintf("must be at most %d", MaxPoints))
	}

	var res *Result
	err := l.inTx(ctx, func(s txStores) error {
		var err error
		res, err = applyDelta(ctx, s, userID, delta, reason, kind, deltaMessage(kind, delta, reason))
		return err
	})
	l.record(kind, delta, err)
	if err != nil {
		return nil, fmt.Errorf("apply delta: %w", err)
	}

	l.logger.Info("balance changed", "user_id", userID, "delta", delta, "kind", kind, "balance", res.NewBalance)
	l.publish(ctx, userID, res.NewBalance, res.Notifications)
	return res, nil
}

// AdjustPoints is the admin operation: Add credits amount, Subtract debits it.
func (l *Ledger) AdjustPoints(ctx context.Context, userID int64, action Action, amount int, reason string) (*Result, error) {
	if amount <= 0 {
		return nil, invalid("points", "must be greater than zero")
	}
	if amount > MaxPoints {
		return nil, invalid("points", fmt.Sprintf("must be at most %d", MaxPoints))
	}
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("reason", "is required")
	}

	switch action {
	case ActionAdd:
		return l.ApplyDelta(ctx, userID, amount, reason, model.ActionCredit)
	case ActionSubtract:
		return l.ApplyDelta(ctx, userID, -amount, reason, model.ActionDebit)
	default:
		return nil, invalid("action_type", "must be Add or Subtract")
	}
}

// Redeem spends a reward's cost from the user's balance, records the
// redemption and notifies every admin.
func (l *Ledger) Redeem(ctx context.Context, userID, rewardID int64) (*RedeemResult, error) {
	var res RedeemResult
	var cost int
	err := l.inTx(ctx, func(s txStores) error {
		reward, err := s.rewards.GetByID(ctx, rewardID)
		if err != nil {
			return err
		}
		if reward == nil {
			return ErrRewardNotFound
		}
		cost = reward.PointCost

		applied, err := applyDelta(ctx, s, userID, -reward.PointCost,
			"Redeemed: "+reward.Name, model.ActionRedemption,
			fmt.Sprintf("Redeemed: %s (-%d points)", reward.Name, reward.PointCost))
		if err != nil {
			return err
		}

		redemption, err := s.redemptions.Create(ctx, userID, reward.ID, reward.Name, reward.PointCost)
		if err != nil {
			return err
		}

		admins, err := s.users.ListByRole(ctx, model.RoleAdmin)
		if err != nil {
			return err
		}
		notes := applied.Notifications
		msg := fmt.Sprintf("%s redeemed %s for %d points", redemption.Username, reward.Name, reward.PointCost)
		for _, admin := range admins {
			n, err := s.notes.Create(ctx, admin.ID, msg)
			if err != nil {
				return err
			}
			notes = append(notes, *n)
		}

		res = RedeemResult{
			NewBalance:    applied.NewBalance,
			Redemption:    redemption,
			Entry:         applied.Entry,
			Notifications: notes,
		}
		return nil
	})
	l.record(model.ActionRedemption, -cost, err)
	if err != nil {
		return nil, fmt.Errorf("redeem reward: %w", err)
	}

	l.logger.Info("reward redeemed", "user_id", userID, "reward_id", rewardID, "cost", cost, "balance", res.NewBalance)
	l.publish(ctx, userID, res.NewBalance, res.Notifications)
	return &res, nil
}

func (l *Ledger) publish(ctx context.Context, userID int64, balance int, notes []model.Notification) {
	if l.publisher == nil {
		return
	}
	l.publisher.BalanceChanged(userID, balance)
	l.publisher.NotificationsCreated(ctx, notes)
}

func (l *Ledger) record(kind model.ActionKind, delta int, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientBalance):
		outcome = "insufficient_balance"
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRewardNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.RecordLedgerOperation(string(kind), outcome, delta)
}

func deltaMessage(kind model.ActionKind, delta int, reason string) string {
	switch {
	case kind == model.ActionRedemption:
		return fmt.Sprintf("Redeemed: %s (%d points)", reason, delta)
	case delta > 0:
		return fmt.Sprintf("Added %d points: %s", delta, reason)
	default:
		return fmt.Sprintf("Removed %d points: %s", -delta, reason)
	}
}
