package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/pointjar/internal/backup"
	"github.com/dukerupert/pointjar/internal/store"
)

const backupHistoryLimit = 50

type BackupHandler struct {
	manager *backup.Manager
	backups *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backups: bs, logger: logger}
}

// RunNow handles POST /api/admin/backups
func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	record, err := h.manager.RunNow(r.Context())
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, backup.ErrRunning):
		writeMessage(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// List handles GET /api/admin/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.backups.List(r.Context(), backupHistoryLimit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  h.manager.Status(),
		"backups": emptyIfNil(list),
	})
}
