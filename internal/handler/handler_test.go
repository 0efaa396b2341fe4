package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/pointjar/internal/auth"
	"github.com/dukerupert/pointjar/internal/ledger"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body["error"]
}

func TestWriteErrorMapping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"insufficient", fmt.Errorf("redeem reward: %w", ledger.ErrInsufficientBalance), http.StatusBadRequest, "insufficient points"},
		{"validation", fmt.Errorf("apply delta: %w", &ledger.ValidationError{Field: "points", Message: "must not be zero"}), http.StatusBadRequest, "points: must not be zero"},
		{"user not found", fmt.Errorf("apply delta: %w", ledger.ErrUserNotFound), http.StatusNotFound, "user not found"},
		{"reward not found", fmt.Errorf("redeem reward: %w", ledger.ErrRewardNotFound), http.StatusNotFound, "reward not found"},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"no session", auth.ErrUnauthenticated, http.StatusUnauthorized, "authentication required"},
		{"not admin", auth.ErrForbidden, http.StatusForbidden, "admin access required"},
		{"storage", errors.New("disk I/O error"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, logger, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeError(t, rec); got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestDecodeJSONValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ok      bool
		wantMsg string
	}{
		{"valid", `{"name":"Cake","point_cost":10}`, true, ""},
		{"malformed", `{"name":`, false, "invalid JSON"},
		{"missing name", `{"point_cost":10}`, false, "name is required"},
		{"zero cost", `{"name":"Cake","point_cost":0}`, false, "point_cost must be greater than 0"},
		{"long name", `{"name":"` + strings.Repeat("x", 101) + `","point_cost":10}`, false, "name must be at most 100 characters"},
		{"huge cost", `{"name":"Cake","point_cost":9223372036854775807}`, false, "point_cost must be at most 1000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/rewards", strings.NewReader(tt.body))

			var dst rewardRequest
			ok := decodeJSON(rec, req, &dst)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok {
				return
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if got := decodeError(t, rec); got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}
