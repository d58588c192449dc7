package chat

import (
	"time"

	"github.com/tickethub/helpdesk-api/internal/domain"
)

// Wire operation names, shared by server and client.
const (
	// client -> server
	TypeJoinTicketGroup   = "JoinTicketGroup"
	TypeLeaveTicketGroup  = "LeaveTicketGroup"
	TypeSendMessage       = "SendMessage"
	TypeMarkMessageAsRead = "MarkMessageAsRead"
	TypePing              = "Ping"

	// server -> client
	TypeReceiveMessage = "ReceiveMessage"
	TypeJoinedGroup    = "JoinedGroup"
	TypePong           = "Pong"
	TypeError          = "Error"
)

// Error codes carried by TypeError envelopes. Validation and
// authorization failures are structured responses, never bare
// disconnects, so the client can render something specific.
const (
	CodeValidationError = "validation_error"
	CodeNotFound        = "not_found"
	CodeForbidden       = "forbidden"
	CodeInternalError   = "internal_error"
)

// Envelope is the single frame format on the duplex channel. Which
// fields are set depends on Type; the message payload is always the
// canonical domain.Message schema and is never re-interpreted
// downstream.
type Envelope struct {
	Type string `json:"type"`

	TicketID  uint            `json:"ticket_id,omitempty"`
	MessageID uint            `json:"message_id,omitempty"`
	Message   *domain.Message `json:"message,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`

	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}
