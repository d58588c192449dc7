package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tickethub/helpdesk-api/internal/config"
	"github.com/tickethub/helpdesk-api/internal/domain"
)

// Client is one server-side connection. Its identity is the opaque,
// hub-assigned connection id, not the user id: two tabs of the same
// user are distinct group members. All handler dispatch for one
// connection happens on its single reader goroutine, so per-connection
// operations never interleave.
type Client struct {
	ID     string
	UserID uint

	conn *websocket.Conn
	send chan []byte
	conf *config.ChatConfig

	sendMu sync.Mutex
	closed bool
}

func NewClient(id string, userID uint, conn *websocket.Conn, conf *config.ChatConfig) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, conf.SendBufferSize),
		conf:   conf,
	}
}

// push queues an envelope for delivery to this client only. Full
// buffers drop the frame; the client reconciles via history pull.
func (c *Client) push(env *Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		zap.L().Error("failed to marshal envelope", zap.Error(err))
		return
	}

	c.trySend(data)
}

// trySend queues a frame unless the client has been shut down or its
// buffer is full. The reader goroutine keeps pushing after the hub
// drops the client, so every send has to go through the closed check.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend permanently stops deliveries and releases WritePump.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump consumes envelopes from the connection until it errors,
// then unregisters the client. Abnormal loss and graceful close take
// the same cleanup path. The read deadline enforces the keep-alive
// window; any pong resets it.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.conf.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.conf.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.conf.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				zap.L().Warn("websocket read error", zap.String("conn_id", c.ID), zap.Error(err))
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.push(&Envelope{Type: TypeError, Code: CodeValidationError, Error: "malformed frame"})
			continue
		}

		c.dispatch(h, &env)
	}
}

func (c *Client) dispatch(h *Hub, env *Envelope) {
	ctx := context.Background()

	switch env.Type {
	case TypeJoinTicketGroup:
		if err := h.JoinTicket(c, env.TicketID); err != nil {
			c.push(wireError(err))
		}

	case TypeLeaveTicketGroup:
		h.LeaveTicket(c, env.TicketID)

	case TypeSendMessage:
		if env.Message == nil {
			c.push(&Envelope{Type: TypeError, Code: CodeValidationError, Error: "missing message payload"})
			return
		}
		// Sender identity comes from the authenticated connection,
		// whatever the draft claims.
		ticketID := env.TicketID
		if ticketID == 0 {
			ticketID = env.Message.TicketID
		}
		draft := domain.Message{
			TicketID: ticketID,
			Content:  env.Message.Content,
		}
		if _, err := h.Submit(ctx, draft, c.UserID); err != nil {
			c.push(wireError(err))
		}

	case TypeMarkMessageAsRead:
		h.MarkRead(ctx, env.MessageID)

	case TypePing:
		h.Ping(c)

	default:
		c.push(&Envelope{Type: TypeError, Code: CodeValidationError, Error: "unknown operation"})
	}
}

// WritePump drains the send queue onto the connection and keeps the
// channel alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.conf.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.conf.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.conf.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
