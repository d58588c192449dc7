package chat

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Join_One_Ticket_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	// Given an empty registry
	req.Empty(registry.MembersOf(1))

	// When a connection joins a ticket group
	err := registry.Join(connID, 1)

	// Then
	req.NoError(err)
	req.Equal([]string{connID}, registry.MembersOf(1))
}

func TestRegistry_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	// When the same connection joins the same group twice
	req.NoError(registry.Join(connID, 1))
	req.NoError(registry.Join(connID, 1))

	// Then it is a member exactly once
	req.Len(registry.MembersOf(1), 1)
}

func TestRegistry_Join_Rejects_Zero_TicketID(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	err := registry.Join(uuid.NewString(), 0)

	req.ErrorIs(err, ErrInvalidTicketID)
}

func TestRegistry_Join_Multiple_Tickets_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	// When one connection joins several ticket groups
	req.NoError(registry.Join(connID, 1))
	req.NoError(registry.Join(connID, 2))
	req.NoError(registry.Join(connID, 3))

	// Then it is a member of each
	req.Contains(registry.MembersOf(1), connID)
	req.Contains(registry.MembersOf(2), connID)
	req.Contains(registry.MembersOf(3), connID)
}

func TestRegistry_Leave_Removes_Only_That_Membership(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	other := uuid.NewString()

	req.NoError(registry.Join(connID, 1))
	req.NoError(registry.Join(connID, 2))
	req.NoError(registry.Join(other, 1))

	// When the connection leaves one group
	registry.Leave(connID, 1)

	// Then the other group and the other member are untouched
	req.Equal([]string{other}, registry.MembersOf(1))
	req.Contains(registry.MembersOf(2), connID)
}

func TestRegistry_Leave_Unknown_Membership_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Leave(uuid.NewString(), 42)

	req.Empty(registry.MembersOf(42))
}

func TestRegistry_Disconnect_Removes_All_Memberships(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	other := uuid.NewString()

	req.NoError(registry.Join(connID, 1))
	req.NoError(registry.Join(connID, 2))
	req.NoError(registry.Join(other, 2))

	// When the connection drops
	registry.Disconnect(connID)

	// Then every membership of that connection is gone
	req.Empty(registry.MembersOf(1))
	req.Equal([]string{other}, registry.MembersOf(2))
}

func TestRegistry_MembersOf_Returns_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	req.NoError(registry.Join(connID, 1))
	members := registry.MembersOf(1)

	// When the registry changes after the snapshot was taken
	registry.Disconnect(connID)

	// Then the snapshot is unaffected
	req.Equal([]string{connID}, members)
	req.Empty(registry.MembersOf(1))
}

func TestRegistry_Concurrent_Join_Leave(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			connID := uuid.NewString()
			req.NoError(registry.Join(connID, 1))
			registry.MembersOf(1)
			registry.Disconnect(connID)
		}()
	}
	wg.Wait()

	req.Empty(registry.MembersOf(1))
}
