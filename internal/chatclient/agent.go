package chatclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tickethub/helpdesk-api/internal/chat"
	"github.com/tickethub/helpdesk-api/internal/domain"
)

// Status is the externally visible connection state of the agent.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusPolling      Status = "polling"
)

const (
	defaultMaxAttempts  = 5
	defaultBaseDelay    = time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultWriteWait    = 10 * time.Second
)

var ErrAgentClosed = errors.New("chatclient: agent closed")

// Config configures an Agent for a single ticket conversation.
type Config struct {
	// BaseURL is the server's HTTP base, e.g. "http://localhost:8080".
	// The websocket endpoint is derived from it.
	BaseURL string
	WSPath  string
	Token   string

	TicketID uint
	UserID   uint
	IsAdmin  bool

	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	PollInterval time.Duration
	PongWait     time.Duration

	// OnMessage is invoked once per unique message, in delivery order.
	OnMessage func(domain.Message)
	// OnStatus is invoked on every state change.
	OnStatus func(Status)
}

func (c *Config) withDefaults() {
	if c.WSPath == "" {
		c.WSPath = "/ws/chat"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PongWait <= 0 {
		c.PongWait = defaultPongWait
	}
}

// Agent keeps one ticket conversation alive for a client. It prefers
// the duplex channel, reconnects with capped exponential backoff when
// it drops, and degrades to HTTP polling once the reconnect budget is
// exhausted. Messages are deduplicated by id, so switching between the
// two transports never double-delivers.
type Agent struct {
	conf       Config
	fallback   *fallbackClient
	transcript *Transcript

	mu            sync.Mutex
	conn          *websocket.Conn
	status        Status
	joined        bool
	everConnected bool
	queue         []string

	retryCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewAgent(conf Config) *Agent {
	conf.withDefaults()

	return &Agent{
		conf:       conf,
		fallback:   newFallbackClient(conf.BaseURL, conf.Token, conf.IsAdmin),
		transcript: NewTranscript(),
		status:     StatusDisconnected,
		retryCh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Status returns the agent's current connection state.
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.status
}

// Messages returns the deduplicated transcript accumulated so far.
func (a *Agent) Messages() []domain.Message {
	return a.transcript.Messages()
}

// Run drives the connection state machine until ctx is cancelled or
// Close is called. It blocks, so callers usually run it in a goroutine.
func (a *Agent) Run(ctx context.Context) error {
	// Seed the transcript so polling has a lastMessageId to start from.
	if msgs, err := a.fallback.GetTicketMessages(ctx, a.conf.TicketID); err != nil {
		zap.L().Warn("failed to load ticket transcript",
			zap.Uint("ticketID", a.conf.TicketID),
			zap.Error(err))
	} else {
		for _, m := range msgs {
			a.deliver(m)
		}
	}

	for {
		if err := a.closedOrDone(ctx); err != nil {
			return err
		}

		conn, err := a.connectWithBackoff(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrAgentClosed) {
				return err
			}

			// Reconnect budget exhausted. Poll until someone asks us
			// to try the duplex channel again.
			if err := a.pollLoop(ctx); err != nil {
				return err
			}

			continue
		}

		a.readLoop(ctx, conn)

		a.setStatus(a.retryStatus())
	}
}

// Close stops the agent and releases its connection. A live group
// membership gets a best-effort leave so the server can prune the
// session immediately instead of waiting out the keep-alive window.
func (a *Agent) Close() {
	a.once.Do(func() {
		close(a.done)
	})

	a.mu.Lock()
	if a.conn != nil {
		if a.joined {
			a.conn.SetWriteDeadline(time.Now().Add(defaultWriteWait))
			a.conn.WriteJSON(chat.Envelope{
				Type:     chat.TypeLeaveTicketGroup,
				TicketID: a.conf.TicketID,
			})
		}

		a.conn.Close()
		a.conn = nil
		a.joined = false
	}
	a.mu.Unlock()

	a.setStatus(StatusDisconnected)
}

// Retry leaves polling mode and re-attempts the duplex connection with
// a fresh backoff budget. It is safe to call from any goroutine.
func (a *Agent) Retry() {
	select {
	case a.retryCh <- struct{}{}:
	default:
	}
}

// Send delivers a message, preferring the duplex channel and falling
// back to HTTP. A draft that fails both paths is queued and replayed on
// the next successful reconnect; an HTTP success is already persisted
// and broadcast by the server, so it is never queued.
func (a *Agent) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("chatclient: empty message content")
	}

	if a.sendWS(content) == nil {
		return nil
	}

	if _, err := a.fallback.SendMessage(ctx, a.conf.TicketID, content); err == nil {
		return nil
	} else if !isTransient(err) {
		return err
	}

	a.mu.Lock()
	a.queue = append(a.queue, content)
	a.mu.Unlock()

	return errors.New("chatclient: message queued, delivery pending reconnect")
}

func (a *Agent) sendWS(content string) error {
	a.mu.Lock()
	conn, joined := a.conn, a.joined
	a.mu.Unlock()

	if conn == nil || !joined {
		return errors.New("chatclient: duplex channel unavailable")
	}

	return a.writeEnvelope(conn, chat.Envelope{
		Type:     chat.TypeSendMessage,
		TicketID: a.conf.TicketID,
		Message:  &domain.Message{Content: content},
	})
}

func (a *Agent) connectWithBackoff(ctx context.Context) (*websocket.Conn, error) {
	for attempt := 0; attempt < a.conf.MaxAttempts; attempt++ {
		a.setStatus(a.retryStatus())

		if attempt > 0 {
			delay := backoffDelay(attempt-1, a.conf.BaseDelay, a.conf.MaxDelay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-a.done:
				return nil, ErrAgentClosed
			}
		}

		conn, err := a.dial(ctx)
		if err != nil {
			zap.L().Warn("duplex connect failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err))

			continue
		}

		return conn, nil
	}

	return nil, fmt.Errorf("chatclient: gave up after %d attempts", a.conf.MaxAttempts)
}

func (a *Agent) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := strings.Replace(a.conf.BaseURL, "http", "ws", 1) + a.conf.WSPath

	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.conf.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}

		return nil, fmt.Errorf("websocket.Dial -> %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.joined = false
	a.mu.Unlock()

	if err := a.writeEnvelope(conn, chat.Envelope{
		Type:     chat.TypeJoinTicketGroup,
		TicketID: a.conf.TicketID,
	}); err != nil {
		a.dropConn(conn)
		return nil, err
	}

	return conn, nil
}

// readLoop consumes server frames until the connection dies. The group
// join is confirmed in-band by a JoinedGroup frame; only after that do
// queued drafts flush and the missed-message backfill run.
func (a *Agent) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer a.dropConn(conn)

	conn.SetReadDeadline(time.Now().Add(a.conf.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(a.conf.PongWait))
		return nil
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go a.pingLoop(conn, pingDone)

	for {
		var env chat.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("duplex channel dropped", zap.Error(err))
			}

			return
		}

		conn.SetReadDeadline(time.Now().Add(a.conf.PongWait))

		switch env.Type {
		case chat.TypeJoinedGroup:
			a.mu.Lock()
			a.joined = true
			a.everConnected = true
			a.mu.Unlock()

			a.setStatus(StatusConnected)
			a.flushQueue()
			a.backfill(ctx)

		case chat.TypeReceiveMessage:
			if env.Message != nil {
				a.deliver(*env.Message)
			}

		case chat.TypePong:
			// Read deadline already pushed above.

		case chat.TypeError:
			zap.L().Warn("server rejected operation",
				zap.String("code", env.Code),
				zap.String("error", env.Error))
		}
	}
}

func (a *Agent) pingLoop(conn *websocket.Conn, done chan struct{}) {
	interval := a.conf.PongWait * 9 / 10
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.writeEnvelope(conn, chat.Envelope{Type: chat.TypePing}); err != nil {
				conn.Close()
				return
			}
		case <-done:
			return
		case <-a.done:
			return
		}
	}
}

// pollLoop is the degraded transport: fetch new messages every
// PollInterval until Retry is called. Read receipts are not sent in
// this mode; they catch up on the next duplex session.
func (a *Agent) pollLoop(ctx context.Context) error {
	a.setStatus(StatusPolling)

	ticker := time.NewTicker(a.conf.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			msgs, err := a.fallback.GetNewMessages(ctx, a.conf.TicketID, a.transcript.LastID())
			if err != nil {
				zap.L().Warn("poll failed", zap.Error(err))
				continue
			}

			for _, m := range msgs {
				a.deliver(m)
			}

		case <-a.retryCh:
			return nil

		case <-ctx.Done():
			return ctx.Err()

		case <-a.done:
			return ErrAgentClosed
		}
	}
}

// backfill covers the gap between the last seen message and the join,
// so messages broadcast while the agent was offline still arrive.
func (a *Agent) backfill(ctx context.Context) {
	msgs, err := a.fallback.GetNewMessages(ctx, a.conf.TicketID, a.transcript.LastID())
	if err != nil {
		zap.L().Warn("backfill failed", zap.Error(err))
		return
	}

	for _, m := range msgs {
		a.deliver(m)
	}
}

func (a *Agent) flushQueue() {
	a.mu.Lock()
	queued := a.queue
	a.queue = nil
	a.mu.Unlock()

	for _, content := range queued {
		if err := a.sendWS(content); err != nil {
			a.mu.Lock()
			a.queue = append(a.queue, content)
			a.mu.Unlock()

			return
		}
	}
}

// deliver routes one message through dedup, the OnMessage callback and
// the read receipt. Duplicates from transport overlap are dropped here.
func (a *Agent) deliver(msg domain.Message) {
	if !a.transcript.Add(msg) {
		return
	}

	if a.conf.OnMessage != nil {
		a.conf.OnMessage(msg)
	}

	if !msg.IsRead && msg.SenderID != a.conf.UserID {
		a.markRead(msg.ID)
	}
}

// markRead is best effort over the duplex channel only.
func (a *Agent) markRead(messageID uint) {
	a.mu.Lock()
	conn, joined := a.conn, a.joined
	a.mu.Unlock()

	if conn == nil || !joined {
		return
	}

	if err := a.writeEnvelope(conn, chat.Envelope{
		Type:      chat.TypeMarkMessageAsRead,
		MessageID: messageID,
	}); err != nil {
		zap.L().Warn("mark read failed", zap.Uint("messageID", messageID), zap.Error(err))
	}
}

func (a *Agent) writeEnvelope(conn *websocket.Conn, env chat.Envelope) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(defaultWriteWait))

	return conn.WriteJSON(env)
}

func (a *Agent) dropConn(conn *websocket.Conn) {
	conn.Close()

	a.mu.Lock()
	if a.conn == conn {
		a.conn = nil
		a.joined = false
	}
	a.mu.Unlock()
}

// retryStatus labels connect attempts: a session that was never
// established is still "connecting", only the loss of one makes the
// agent "reconnecting".
func (a *Agent) retryStatus() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.everConnected {
		return StatusReconnecting
	}

	return StatusConnecting
}

func (a *Agent) setStatus(s Status) {
	// Once closed, the state machine is allowed one final transition to
	// disconnected; stragglers from the winding-down run loop are dropped.
	select {
	case <-a.done:
		if s != StatusDisconnected {
			return
		}
	default:
	}

	a.mu.Lock()
	changed := a.status != s
	a.status = s
	a.mu.Unlock()

	if changed && a.conf.OnStatus != nil {
		a.conf.OnStatus(s)
	}
}

func (a *Agent) closedOrDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		return ErrAgentClosed
	default:
		return nil
	}
}

// isTransient reports whether an HTTP fallback failure is worth
// queueing the draft for, as opposed to a definitive rejection such as
// a closed ticket. Server-side validation rejections and client-error
// statuses are terminal; timeouts, throttling, server errors and
// network failures are retryable.
func isTransient(err error) bool {
	if errors.Is(err, ErrSendRejected) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		switch se.status {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		}

		return se.status >= http.StatusInternalServerError
	}

	// The request never completed, so the server may not have seen it.
	return true
}
