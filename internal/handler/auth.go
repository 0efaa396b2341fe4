package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/pointjar/internal/auth"
	"github.com/dukerupert/pointjar/internal/store"
)

type AuthHandler struct {
	authenticator *auth.Authenticator
	users         *store.UserStore
	secureCookie  bool
	logger        *slog.Logger
}

// NewAuthHandler builds the login endpoints. secureCookie marks the session
// cookie Secure and SameSite=None so a SPA on another origin can send it.
func NewAuthHandler(a *auth.Authenticator, users *store.UserStore, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authenticator: a, users: users, secureCookie: secureCookie, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	c := &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	}
	if h.secureCookie {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, c)
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, sess, err := h.authenticator.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	h.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Logout handles POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		if err := h.authenticator.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	h.setSessionCookie(w, "", time.Unix(0, 0))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireSession(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.users.GetByID(r.Context(), ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
