package realtime

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type clientMessage struct {
	Event string `json:"event"`
	Data  struct {
		UserID string `json:"userId"`
	} `json:"data"`
}

// UpgradeGuard rejects plain HTTP requests on the websocket path.
func UpgradeGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler runs the per-connection read loop: admit, then process join/leave
// until the client disconnects.
func Handler(hub *Hub, logger *zap.Logger) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sess := hub.Register(conn)
		defer hub.Unregister(sess)

		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Event {
			case "join":
				hub.Join(sess, msg.Data.UserID)
			case "leave":
				hub.Leave(sess)
			default:
				logger.Debug("ignoring unknown client event", zap.String("event", msg.Event))
			}
		}
	})
}
