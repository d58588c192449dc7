package domain

import (
	"strings"
	"time"
)

const adminLabel = " (Admin)"

// Message is the canonical chat message. ID and SentAt are assigned by
// the store on persist; a zero ID denotes an unpersisted draft. After
// persist the only mutable field is IsRead (false -> true, one way).
type Message struct {
	ID         uint      `json:"id"`
	TicketID   uint      `json:"ticket_id"`
	SenderID   uint      `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	IsAdmin    bool      `json:"is_admin"`
	SentAt     time.Time `json:"sent_at"`
	IsRead     bool      `json:"is_read"`
}

// NormalizeSenderName appends a single " (Admin)" suffix for admin
// senders. Any pre-existing occurrences are stripped first so repeated
// normalization never doubles the label.
func (m *Message) NormalizeSenderName() {
	if !m.IsAdmin || m.SenderName == "" {
		return
	}

	clean := strings.TrimSpace(strings.ReplaceAll(m.SenderName, adminLabel, ""))
	m.SenderName = clean + adminLabel
}
