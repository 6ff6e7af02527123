package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"mentorloop-backend/internal/common"
	"mentorloop-backend/internal/directory"
	"mentorloop-backend/internal/models"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients connect from the desktop app and the SPA origin; the JWT
	// on the request is the actual gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CreateWSHandler upgrades an authenticated request and registers the
// connection under the caller's identity channel, plus the admin role
// channel when the claims carry the admin role. The identity subject
// comes from the same directory the notifier publishes with, so join
// and fan-out always agree on the channel name.
func CreateWSHandler(state *common.ServerState, hub *Hub, dir directory.Directory) echo.HandlerFunc {
	return func(c echo.Context) error {
		email, err := state.JwtIssuer.GetUserEmail(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
		}
		user, err := models.GetUserByEmail(state.DB, email)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
		}

		subject, err := dir.ResolveIdentity(c.Request().Context(), user.ID)
		if err != nil {
			c.Logger().Warnf("resolving identity for %s: %v", user.ID, err)
			return echo.NewHTTPError(http.StatusBadGateway, "identity resolution failed")
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}

		client := NewClient(conn)
		channels := []string{IdentityChannel(subject)}
		if user.Role == models.RoleAdmin {
			channels = append(channels, AdminChannel)
		}
		hub.Join(client, channels...)
		c.Logger().Infof("websocket connected: %s", user.ID)

		go writePump(client)
		readPump(client, hub, c.Logger())
		c.Logger().Infof("websocket disconnected: %s", user.ID)
		return nil
	}
}

// readPump drains the connection until it drops. Inbound frames carry
// nothing this server acts on; reading is what surfaces close errors
// and feeds the pong handler.
func readPump(client *Client, hub *Hub, logger echo.Logger) {
	defer func() {
		hub.Leave(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(1024)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("websocket read: %v", err)
			}
			return
		}
	}
}

// writePump pushes published events to the connection and keeps it
// alive with pings.
func writePump(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
