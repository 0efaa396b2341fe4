package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/pointjar/internal/auth"
	"github.com/dukerupert/pointjar/internal/ledger"
)

type PointsHandler struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

func NewPointsHandler(l *ledger.Ledger, logger *slog.Logger) *PointsHandler {
	return &PointsHandler{ledger: l, logger: logger}
}

type redeemRequest struct {
	RewardID int64 `json:"reward_id" validate:"gt=0"`
}

// Redeem handles POST /api/redeem
func (h *PointsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireSession(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req redeemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.ledger.Redeem(r.Context(), ac.UserID, req.RewardID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Reward redeemed successfully!",
		"new_balance": res.NewBalance,
		"redemption":  res.Redemption,
	})
}

type adjustRequest struct {
	UserID     int64  `json:"user_id" validate:"gt=0"`
	ActionType string `json:"action_type" validate:"required,oneof=Add Subtract"`
	Points     int    `json:"points" validate:"gt=0,max=1000000"`
	Reason     string `json:"reason" validate:"required,max=200"`
}

type adjustAction struct {
	Type      string    `json:"type"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// AdjustPoints handles POST /api/points
func (h *PointsHandler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.ledger.AdjustPoints(r.Context(), req.UserID, ledger.Action(req.ActionType), req.Points, req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Points updated successfully",
		"new_balance": res.NewBalance,
		"action": adjustAction{
			Type:      req.ActionType,
			Points:    res.Entry.Delta,
			Reason:    res.Entry.Reason,
			Timestamp: res.Entry.CreatedAt,
		},
	})
}
