package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/pointjar/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and streams that
// user's events until the connection closes. originPatterns lists the
// hosts allowed to connect cross-origin.
func HandleWebSocket(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, err := auth.RequireSession(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			hub.logger.Warn("accept websocket", "user_id", ac.UserID, "error", err)
			return
		}
		defer conn.CloseNow()

		hub.logger.Debug("websocket connected", "user_id", ac.UserID)
		NewClient(hub, conn, ac.UserID).Run(r.Context())
	}
}
