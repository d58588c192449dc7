package chat

import (
	"errors"
	"sync"
)

var ErrInvalidTicketID = errors.New("ticket id must be positive")

// Registry tracks which connections are subscribed to which ticket's
// live updates. It is the only shared mutable structure in the chat
// core; every mutation happens under one lock so a fan-out never
// observes a partially updated group.
//
// Groups are created implicitly on first join and discarded when the
// last member leaves. The reverse index keeps disconnect cleanup
// proportional to the connection's own memberships.
type Registry struct {
	mu sync.RWMutex

	ticketConns map[uint]map[string]bool // ticketID -> set(connID)
	connTickets map[string]map[uint]bool // connID -> set(ticketID)
}

func NewRegistry() *Registry {
	return &Registry{
		ticketConns: make(map[uint]map[string]bool),
		connTickets: make(map[string]map[uint]bool),
	}
}

// Join adds the connection to the ticket's group. Repeat joins are
// no-ops.
func (r *Registry) Join(connID string, ticketID uint) error {
	if ticketID == 0 {
		return ErrInvalidTicketID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ticketConns[ticketID]; !ok {
		r.ticketConns[ticketID] = make(map[string]bool)
	}
	r.ticketConns[ticketID][connID] = true

	if _, ok := r.connTickets[connID]; !ok {
		r.connTickets[connID] = make(map[uint]bool)
	}
	r.connTickets[connID][ticketID] = true

	return nil
}

// Leave removes the connection from the ticket's group; no-op when the
// connection is not a member.
func (r *Registry) Leave(connID string, ticketID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(connID, ticketID)
}

// Disconnect removes the connection from every group it belongs to.
// Invoked on any transport-level disconnect, graceful or not.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ticketID := range r.connTickets[connID] {
		r.leaveLocked(connID, ticketID)
	}
}

// MembersOf returns a snapshot of the ticket's current members. An
// empty result is not an error; broadcasting to nobody is legal.
func (r *Registry) MembersOf(ticketID uint) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.ticketConns[ticketID]
	members := make([]string, 0, len(conns))
	for connID := range conns {
		members = append(members, connID)
	}

	return members
}

func (r *Registry) leaveLocked(connID string, ticketID uint) {
	if conns, ok := r.ticketConns[ticketID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.ticketConns, ticketID)
		}
	}
	if tickets, ok := r.connTickets[connID]; ok {
		delete(tickets, ticketID)
		if len(tickets) == 0 {
			delete(r.connTickets, connID)
		}
	}
}
