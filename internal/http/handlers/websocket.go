package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"enhancer/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware in front of
	// the router; the websocket handshake accepts any origin that got
	// this far.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Notifications upgrades the connection and registers it as a live channel
// for the authenticated user. The connection stays open until the client
// disconnects; server-side events are pushed by the notification registry.
func (a *App) Notifications(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the handshake error response.
		a.Logger.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	channel := notify.NewWebSocketChannel(conn)
	handle := a.Registry.Register(userID, channel)
	a.Logger.Debug().Str("user_id", userID).Msg("notification channel opened")

	// Reads are only used to detect disconnect; clients never send
	// meaningful frames.
	go func() {
		defer func() {
			a.Registry.Unregister(handle)
			_ = conn.Close()
			a.Logger.Debug().Str("user_id", userID).Msg("notification channel closed")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
