package chatclient

import (
	"sync"

	"github.com/tickethub/helpdesk-api/internal/domain"
)

// Transcript is the locally rendered message list. Dedup by store id
// is the single idempotence guarantee: the same message arriving once
// by push and once by poll yields exactly one entry.
type Transcript struct {
	mu     sync.Mutex
	seen   map[uint]bool
	msgs   []domain.Message
	lastID uint
}

func NewTranscript() *Transcript {
	return &Transcript{
		seen: make(map[uint]bool),
	}
}

// Add appends the message unless its id was already rendered. Messages
// without a store id are rejected; only canonical messages render.
func (t *Transcript) Add(msg domain.Message) bool {
	if msg.ID == 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen[msg.ID] {
		return false
	}

	t.seen[msg.ID] = true
	t.msgs = append(t.msgs, msg)
	if msg.ID > t.lastID {
		t.lastID = msg.ID
	}

	return true
}

// Messages returns a copy of the rendered transcript in arrival order.
func (t *Transcript) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.Message, len(t.msgs))
	copy(out, t.msgs)

	return out
}

// LastID is the highest rendered message id, the cursor for
// incremental polling.
func (t *Transcript) LastID() uint {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.lastID
}
