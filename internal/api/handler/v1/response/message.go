package response

import "github.com/tickethub/helpdesk-api/internal/domain"

// SendMessageResponse is the envelope of the HTTP fallback send path.
// Data carries the canonical persisted message so non-duplex callers,
// who receive no push, still learn the store-assigned id.
type SendMessageResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *domain.Message `json:"data,omitempty"`
}

type DeleteMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type UnreadCountResponse struct {
	TicketID uint  `json:"ticket_id"`
	Count    int64 `json:"count"`
}
