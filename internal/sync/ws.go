package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades GET /ws. An optional ?types=anime.status,episode.created
// narrows the feed. The socket stays registered until the client leaves.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := ParseFilter(c.QueryArray("types"))

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		if line, err := jsonLine(control{Type: "welcome", Transport: "websocket", Types: filter.Types()}); err == nil {
			_ = ws.WriteMessage(websocket.TextMessage, line)
		}
		hub.AddWS(ws, filter)

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		hub.RemoveWS(ws)
	}
}
