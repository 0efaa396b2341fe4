// Package bootstrap seeds a fresh database with the default household.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/pointjar/internal/auth"
	"github.com/dukerupert/pointjar/internal/ledger"
	"github.com/dukerupert/pointjar/internal/model"
	"github.com/dukerupert/pointjar/internal/store"
)

const startingBalance = 100

type seedUser struct {
	username string
	password string
	role     string
	credit   int
}

var defaultUsers = []seedUser{
	{username: "anthony", password: "admin123", role: model.RoleAdmin},
	{username: "joep", password: "user123", role: model.RoleMember, credit: startingBalance},
}

var defaultRewards = []model.Reward{
	{Name: "Movie Night", Description: "Pick any movie for movie night", PointCost: 50},
	{Name: "Dinner Date", Description: "Choose the restaurant for dinner", PointCost: 100},
	{Name: "Massage", Description: "A 30 minute massage", PointCost: 75},
	{Name: "Gaming Time", Description: "An extra hour of gaming", PointCost: 25},
}

// Seed creates the default users and rewards when their tables are empty.
// Starting balances go through the ledger so every balance has a matching
// log entry.
func Seed(ctx context.Context, db *sql.DB, l *ledger.Ledger, logger *slog.Logger) error {
	users := store.NewUserStore(db)
	rewards := store.NewRewardStore(db)

	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if n == 0 {
		for _, su := range defaultUsers {
			hash, err := auth.HashPassword(su.password)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", su.username, err)
			}
			u, err := users.Create(ctx, su.username, hash, su.role, 0)
			if err != nil {
				return fmt.Errorf("create user %s: %w", su.username, err)
			}
			if su.credit > 0 {
				if _, err := l.ApplyDelta(ctx, u.ID, su.credit, "Starting balance", model.ActionCredit); err != nil {
					return fmt.Errorf("credit %s: %w", su.username, err)
				}
			}
			logger.Info("seeded user", "username", su.username, "role", su.role)
		}
	}

	n, err = rewards.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed rewards: %w", err)
	}
	if n == 0 {
		for _, r := range defaultRewards {
			if _, err := rewards.Create(ctx, r.Name, r.Description, r.PointCost); err != nil {
				return fmt.Errorf("create reward %s: %w", r.Name, err)
			}
		}
		logger.Info("seeded rewards", "count", len(defaultRewards))
	}

	return nil
}
