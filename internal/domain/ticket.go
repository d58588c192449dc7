package domain

import "time"

const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

const (
	TicketPriorityLow      = "low"
	TicketPriorityMedium   = "medium"
	TicketPriorityHigh     = "high"
	TicketPriorityCritical = "critical"
)

type Ticket struct {
	ID            uint       `json:"id"`
	UserID        uint       `json:"user_id"`
	Subject       string     `json:"subject"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	Category      string     `json:"category"`
	AdminResponse string     `json:"admin_response,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

func (t Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

// CanAccess is the single authorization predicate for ticket data:
// the owner and administrators may read or write, nobody else.
func (t Ticket) CanAccess(u User) bool {
	return u.IsAdmin || t.UserID == u.ID
}
