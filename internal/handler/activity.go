package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pointjar/internal/auth"
	"github.com/dukerupert/pointjar/internal/model"
	"github.com/dukerupert/pointjar/internal/store"
)

const (
	memberActivityLimit    = 10
	memberRedemptionLimit  = 5
	adminRedemptionLimit   = 5
	adminNotificationLimit = 5
	notificationsPageLimit = 20
)

// ActivityHandler serves the read-only views: dashboard, history,
// notifications and the admin listings.
type ActivityHandler struct {
	users         *store.UserStore
	logs          *store.PointLogStore
	notifications *store.NotificationStore
	redemptions   *store.RedemptionStore
	logger        *slog.Logger
}

func NewActivityHandler(us *store.UserStore, ls *store.PointLogStore, ns *store.NotificationStore, rs *store.RedemptionStore, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{users: us, logs: ls, notifications: ns, redemptions: rs, logger: logger}
}

type memberDashboard struct {
	PointBalance      int                   `json:"point_balance"`
	RecentActivity    []model.PointLogEntry `json:"recent_activity"`
	RecentRedemptions []model.Redemption    `json:"recent_redemptions"`
}

type adminDashboard struct {
	Members             []model.User         `json:"members"`
	RecentRedemptions   []model.Redemption   `json:"recent_redemptions"`
	RecentNotifications []model.Notification `json:"recent_notifications"`
}

// Dashboard handles GET /api/dashboard
func (h *ActivityHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireSession(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	ctx := r.Context()

	if ac.Role == model.RoleAdmin {
		members, err := h.users.ListByRole(ctx, model.RoleMember)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		redemptions, err := h.redemptions.List(ctx, adminRedemptionLimit)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		notes, err := h.notifications.ListByUser(ctx, ac.UserID, adminNotificationLimit)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, adminDashboard{
			Members:             emptyIfNil(members),
			RecentRedemptions:   emptyIfNil(redemptions),
			RecentNotifications: emptyIfNil(notes),
		})
		return
	}

	user, err := h.users.GetByID(ctx, ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}
	activity, err := h.logs.ListByUser(ctx, ac.UserID, memberActivityLimit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	redemptions, err := h.redemptions.ListByUser(ctx, ac.UserID, memberRedemptionLimit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, memberDashboard{
		PointBalance:      user.Balance,
		RecentActivity:    emptyIfNil(activity),
		RecentRedemptions: emptyIfNil(redemptions),
	})
}

// History handles GET /api/history
func (h *ActivityHandler) History(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireSession(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeHistory(w, r, ac.UserID)
}

// UserHistory handles GET /api/admin/users/{id}/history
func (h *ActivityHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}
	h.writeHistory(w, r, id)
}

func (h *ActivityHandler) writeHistory(w http.ResponseWriter, r *http.Request, userID int64) {
	history, err := h.logs.ListByUser(r.Context(), userID, 0)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": emptyIfNil(history)})
}

// Notifications handles GET /api/notifications
func (h *ActivityHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireSession(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	notes, err := h.notifications.ListByUser(r.Context(), ac.UserID, notificationsPageLimit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": emptyIfNil(notes)})
}

// Redemptions handles GET /api/admin/redemptions
func (h *ActivityHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	redemptions, err := h.redemptions.List(r.Context(), 0)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"redemptions": emptyIfNil(redemptions)})
}

// Users handles GET /api/admin/users
func (h *ActivityHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": emptyIfNil(users)})
}
