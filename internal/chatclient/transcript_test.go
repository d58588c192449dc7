package chatclient

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tickethub/helpdesk-api/internal/domain"
)

func TestTranscript_Add_Deduplicates_By_ID(t *testing.T) {
	req := require.New(t)
	tr := NewTranscript()

	// Given a message already in the transcript
	req.True(tr.Add(domain.Message{ID: 1, Content: "first"}))

	// When the same id arrives again, e.g. once over the duplex channel
	// and once from a poll
	req.False(tr.Add(domain.Message{ID: 1, Content: "first"}))

	// Then it is kept exactly once
	req.Len(tr.Messages(), 1)
}

func TestTranscript_Add_Rejects_Zero_ID(t *testing.T) {
	req := require.New(t)
	tr := NewTranscript()

	req.False(tr.Add(domain.Message{ID: 0, Content: "unsaved draft"}))
	req.Empty(tr.Messages())
}

func TestTranscript_Preserves_Arrival_Order(t *testing.T) {
	req := require.New(t)
	tr := NewTranscript()

	tr.Add(domain.Message{ID: 3})
	tr.Add(domain.Message{ID: 1})
	tr.Add(domain.Message{ID: 2})

	msgs := tr.Messages()
	req.Len(msgs, 3)
	req.Equal(uint(3), msgs[0].ID)
	req.Equal(uint(1), msgs[1].ID)
	req.Equal(uint(2), msgs[2].ID)
}

func TestTranscript_LastID_Tracks_Highest_Seen(t *testing.T) {
	req := require.New(t)
	tr := NewTranscript()

	req.Zero(tr.LastID())

	tr.Add(domain.Message{ID: 5})
	tr.Add(domain.Message{ID: 2})

	// LastID is the polling cursor; an out-of-order arrival must not
	// move it backwards or the poll would refetch.
	req.Equal(uint(5), tr.LastID())
}

func TestTranscript_Messages_Returns_Copy(t *testing.T) {
	req := require.New(t)
	tr := NewTranscript()

	tr.Add(domain.Message{ID: 1, Content: "original"})

	msgs := tr.Messages()
	msgs[0].Content = "mutated"

	req.Equal("original", tr.Messages()[0].Content)
}
