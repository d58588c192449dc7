package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/repository"
	"github.com/tickethub/helpdesk-api/internal/service"
)

// MessageStore is what the hub needs from the message service: persist
// with full validation/authorization, and best-effort read marking.
type MessageStore interface {
	Create(ctx context.Context, draft domain.Message, senderID uint) (domain.Message, error)
	MarkAsRead(ctx context.Context, messageID uint) bool
}

// Hub is the message broadcast service. It owns the session registry
// and the set of live connections; a submitted draft is validated,
// persisted through the store, and the canonical result fanned out to
// every member of the ticket's group, the sender included. Senders
// never render their own unconfirmed drafts; everyone converges on the
// server echo.
type Hub struct {
	store    MessageStore
	registry *Registry

	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	// per-ticket locks keep each persist-then-broadcast sequence
	// atomic with respect to other submissions on the same ticket
	orderMu sync.Mutex
	order   map[uint]*sync.Mutex
}

func NewHub(store MessageStore) *Hub {
	return &Hub{
		store:      store,
		registry:   NewRegistry(),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		order:      make(map[uint]*sync.Mutex),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			zap.L().Debug("client connected", zap.String("conn_id", client.ID), zap.Uint("user_id", client.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.ID]
			if ok {
				delete(h.clients, client.ID)
			}
			h.mu.Unlock()
			if ok {
				client.closeSend()
				h.registry.Disconnect(client.ID)
				zap.L().Debug("client disconnected", zap.String("conn_id", client.ID))
			}
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.register <- c
}

func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Submit validates, persists, and fans out a draft on behalf of the
// authenticated sender. Both the WebSocket path and the HTTP fallback
// go through here, so the store remains the single id authority and
// per-ticket ordering holds across delivery paths.
func (h *Hub) Submit(ctx context.Context, draft domain.Message, senderID uint) (domain.Message, error) {
	mu := h.ticketLock(draft.TicketID)
	mu.Lock()
	defer mu.Unlock()

	saved, err := h.store.Create(ctx, draft, senderID)
	if err != nil {
		return domain.Message{}, err
	}

	h.broadcast(saved.TicketID, &Envelope{
		Type:    TypeReceiveMessage,
		Message: &saved,
	})

	zap.L().Info("message broadcast",
		zap.Uint("ticket_id", saved.TicketID),
		zap.Uint("message_id", saved.ID))

	return saved, nil
}

// JoinTicket subscribes the connection to a ticket group and confirms
// with a JoinedGroup push so the client can gate its ready-to-send
// state on acknowledged membership.
func (h *Hub) JoinTicket(c *Client, ticketID uint) error {
	if err := h.registry.Join(c.ID, ticketID); err != nil {
		return err
	}

	zap.L().Info("client joined ticket group",
		zap.String("conn_id", c.ID),
		zap.Uint("ticket_id", ticketID))

	c.push(&Envelope{Type: TypeJoinedGroup, TicketID: ticketID})

	return nil
}

func (h *Hub) LeaveTicket(c *Client, ticketID uint) {
	h.registry.Leave(c.ID, ticketID)

	zap.L().Info("client left ticket group",
		zap.String("conn_id", c.ID),
		zap.Uint("ticket_id", ticketID))
}

// MarkRead is best effort; a failure is logged by the store and must
// never interrupt the chat flow.
func (h *Hub) MarkRead(ctx context.Context, messageID uint) bool {
	return h.store.MarkAsRead(ctx, messageID)
}

// Ping answers a client liveness check with the server clock.
func (h *Hub) Ping(c *Client) {
	now := time.Now()
	c.push(&Envelope{Type: TypePong, Timestamp: &now})
}

// broadcast delivers an envelope to every current member of the ticket
// group. Members whose send buffer is full are dropped; they resync
// from history on reconnect.
func (h *Hub) broadcast(ticketID uint, env *Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		zap.L().Error("failed to marshal envelope", zap.Error(err))
		return
	}

	members := h.registry.MembersOf(ticketID)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, connID := range members {
		client, ok := h.clients[connID]
		if !ok {
			continue
		}
		if !client.trySend(data) {
			zap.L().Warn("dropping slow client", zap.String("conn_id", connID))
			go h.Unregister(client)
		}
	}
}

func (h *Hub) ticketLock(ticketID uint) *sync.Mutex {
	h.orderMu.Lock()
	defer h.orderMu.Unlock()

	mu, ok := h.order[ticketID]
	if !ok {
		mu = &sync.Mutex{}
		h.order[ticketID] = mu
	}

	return mu
}

// wireError maps a submit failure onto the protocol's error taxonomy.
// Internal detail stays in the server logs; the wire carries only the
// code and a short caller-safe message.
func wireError(err error) *Envelope {
	switch {
	case errors.Is(err, service.ErrInvalidTicketID), errors.Is(err, service.ErrEmptyContent), errors.Is(err, ErrInvalidTicketID):
		return &Envelope{Type: TypeError, Code: CodeValidationError, Error: err.Error()}
	case errors.Is(err, repository.ErrTicketNotFound), errors.Is(err, repository.ErrMessageNotFound), errors.Is(err, repository.ErrUserNotFound):
		return &Envelope{Type: TypeError, Code: CodeNotFound, Error: "not found"}
	case errors.Is(err, service.ErrTicketAccess), errors.Is(err, service.ErrTicketClosed):
		return &Envelope{Type: TypeError, Code: CodeForbidden, Error: "forbidden"}
	default:
		zap.L().Error("chat operation failed", zap.Error(err))
		return &Envelope{Type: TypeError, Code: CodeInternalError, Error: "internal error"}
	}
}
