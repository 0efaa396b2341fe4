// Package notify fans committed ledger events out to live WebSocket
// connections and, when configured, to Web Push.
package notify

import (
	"context"
	"log/slog"

	"github.com/dukerupert/pointjar/internal/model"
	"github.com/dukerupert/pointjar/internal/push"
	"github.com/dukerupert/pointjar/internal/websocket"
)

// Hub delivers live messages to a user's open connections.
type Hub interface {
	SendToUser(userID int64, msg websocket.Message)
	Broadcast(msg websocket.Message)
}

// PushQueue accepts payloads for background Web Push delivery.
type PushQueue interface {
	Enqueue(userID int64, payload push.Payload) bool
}

// Dispatcher implements ledger.Publisher.
type Dispatcher struct {
	hub    Hub
	push   PushQueue
	logger *slog.Logger
}

// New builds a Dispatcher. pushQueue may be nil when Web Push is disabled.
func New(hub Hub, pushQueue PushQueue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, push: pushQueue, logger: logger.With("component", "notify")}
}

func (d *Dispatcher) BalanceChanged(userID int64, newBalance int) {
	d.hub.SendToUser(userID, websocket.NewMessage("balance", "changed", userID,
		map[string]int{"point_balance": newBalance}))
}

func (d *Dispatcher) NotificationsCreated(_ context.Context, notes []model.Notification) {
	for _, n := range notes {
		d.hub.SendToUser(n.UserID, websocket.NewMessage("notification", "created", n.ID, n))
		if d.push == nil {
			continue
		}
		d.push.Enqueue(n.UserID, push.Payload{
			Title: "Point Jar",
			Body:  n.Message,
			URL:   "/notifications",
			Tag:   "pointjar-notification",
		})
	}
	d.logger.Debug("notifications dispatched", "count", len(notes))
}

// RewardChanged tells every client that the catalog changed.
func (d *Dispatcher) RewardChanged(action string, rewardID int64) {
	d.hub.Broadcast(websocket.NewMessage("reward", action, rewardID, nil))
}
