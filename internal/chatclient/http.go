package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tickethub/helpdesk-api/internal/api/handler/v1/response"
	"github.com/tickethub/helpdesk-api/internal/domain"
)

// ErrSendRejected marks a message the server validated and refused.
// Replaying the same draft can never succeed, so callers must not
// queue it.
var ErrSendRejected = errors.New("send message rejected")

// statusError carries the HTTP status of a failed request so callers
// can tell terminal client errors from retryable server trouble.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

// fallbackClient talks to the role-prefixed HTTP endpoints that mirror
// the websocket operations. The agent uses it to send messages while
// the duplex connection is down and to poll for new messages.
type fallbackClient struct {
	baseURL string
	token   string
	role    string
	http    *http.Client
}

func newFallbackClient(baseURL, token string, isAdmin bool) *fallbackClient {
	role := "user"
	if isAdmin {
		role = "admin"
	}

	return &fallbackClient{
		baseURL: baseURL,
		token:   token,
		role:    role,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendMessagePayload struct {
	TicketID uint   `json:"ticket_id"`
	Content  string `json:"content"`
}

// SendMessage posts a message over HTTP. On success the server has
// already persisted and broadcast it, so the returned message must not
// be queued for replay.
func (c *fallbackClient) SendMessage(ctx context.Context, ticketID uint, content string) (*domain.Message, error) {
	body, err := json.Marshal(sendMessagePayload{
		TicketID: ticketID,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("json.Marshal -> %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/%s/SendMessage", c.baseURL, c.role)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	var parsed response.SendMessageResponse
	if err := c.do(req, &parsed); err != nil {
		return nil, err
	}

	if !parsed.Success {
		return nil, fmt.Errorf("%w: %s", ErrSendRejected, parsed.Message)
	}

	return parsed.Data, nil
}

// GetTicketMessages fetches the full transcript of a ticket.
func (c *fallbackClient) GetTicketMessages(ctx context.Context, ticketID uint) ([]domain.Message, error) {
	endpoint := fmt.Sprintf("%s/api/v1/%s/GetTicketMessages/%d", c.baseURL, c.role, ticketID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	var msgs []domain.Message
	if err := c.do(req, &msgs); err != nil {
		return nil, err
	}

	return msgs, nil
}

// GetNewMessages fetches messages with an id greater than lastMessageID,
// in the same order the server broadcasts them.
func (c *fallbackClient) GetNewMessages(ctx context.Context, ticketID, lastMessageID uint) ([]domain.Message, error) {
	endpoint := fmt.Sprintf("%s/api/v1/%s/GetNewMessages", c.baseURL, c.role)

	q := url.Values{}
	q.Set("ticketId", strconv.FormatUint(uint64(ticketID), 10))
	q.Set("lastMessageId", strconv.FormatUint(uint64(lastMessageID), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	var msgs []domain.Message
	if err := c.do(req, &msgs); err != nil {
		return nil, err
	}

	return msgs, nil
}

func (c *fallbackClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request -> %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("json.Decode -> %w", err)
	}

	return nil
}
