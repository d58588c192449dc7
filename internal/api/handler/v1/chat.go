package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tickethub/helpdesk-api/internal/chat"
	"github.com/tickethub/helpdesk-api/internal/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust this for production!
	},
}

type ChatHandler struct {
	hub  *chat.Hub
	conf *config.ChatConfig
	uSvc UserService
}

func NewChatHandler(hub *chat.Hub, conf *config.ChatConfig, uSvc UserService) *ChatHandler {
	return &ChatHandler{
		hub:  hub,
		conf: conf,
		uSvc: uSvc,
	}
}

// HandleWebSocket godoc
// @Summary      Establish the duplex chat connection
// @Description  Upgrades to a websocket carrying JSON envelopes. Each
// @Description  connection gets its own identity, so two tabs of the
// @Description  same user are independent group members.
// @Tags         chat
// @Produce      json
// @Success      101 {string} string "Switching Protocols to WebSocket"
// @Failure      401      {object}   response.Err
// @Router       /ws/chat [get]
// @Security     BearerAuth
func (h *ChatHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))

		return
	}

	user, respErr := getUserFromContext(c, h.uSvc)
	if respErr != nil {
		conn.Close()

		return
	}

	client := chat.NewClient(uuid.NewString(), user.ID, conn, h.conf)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.hub)
}
