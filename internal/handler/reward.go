package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pointjar/internal/store"
)

// RewardEvents is told about catalog changes.
type RewardEvents interface {
	RewardChanged(action string, rewardID int64)
}

type RewardHandler struct {
	rewards *store.RewardStore
	events  RewardEvents
	logger  *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, events RewardEvents, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, events: events, logger: logger}
}

func (h *RewardHandler) changed(action string, id int64) {
	if h.events != nil {
		h.events.RewardChanged(action, id)
	}
}

type rewardRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	PointCost   int    `json:"point_cost" validate:"gt=0,max=1000000"`
}

func (req *rewardRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
}

// List handles GET /api/rewards
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rewards": emptyIfNil(rewards)})
}

// Create handles POST /api/rewards
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	reward, err := h.rewards.Create(r.Context(), req.Name, req.Description, req.PointCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("reward created", "id", reward.ID, "name", reward.Name, "cost", reward.PointCost)
	h.changed("created", reward.ID)
	writeJSON(w, http.StatusCreated, reward)
}

// Update handles PUT /api/rewards/{id}
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req rewardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	reward, err := h.rewards.Update(r.Context(), id, req.Name, req.Description, req.PointCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if reward == nil {
		writeMessage(w, http.StatusNotFound, "reward not found")
		return
	}

	h.changed("updated", id)
	writeJSON(w, http.StatusOK, reward)
}

// Delete handles DELETE /api/rewards/{id}
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := h.rewards.Delete(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "reward not found")
		return
	}

	h.logger.Info("reward deleted", "id", id)
	h.changed("deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reward deleted successfully"})
}
