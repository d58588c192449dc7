package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/repository"
)

type fakeMessageRepo struct {
	createFn    func(ctx context.Context, message domain.Message) (domain.Message, error)
	findByIDFn  func(ctx context.Context, id uint) (domain.Message, error)
	listFn      func(ctx context.Context, ticketID uint) ([]domain.Message, error)
	listAfterFn func(ctx context.Context, ticketID, lastID uint) ([]domain.Message, error)
	markReadFn  func(ctx context.Context, id uint) error
	countFn     func(ctx context.Context, ticketID, userID uint) (int64, error)
	deleteFn    func(ctx context.Context, id uint) error
}

func (f *fakeMessageRepo) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	return f.createFn(ctx, message)
}

func (f *fakeMessageRepo) FindByID(ctx context.Context, id uint) (domain.Message, error) {
	return f.findByIDFn(ctx, id)
}

func (f *fakeMessageRepo) FindByTicketID(ctx context.Context, ticketID uint) ([]domain.Message, error) {
	return f.listFn(ctx, ticketID)
}

func (f *fakeMessageRepo) FindByTicketIDAfter(ctx context.Context, ticketID, lastID uint) ([]domain.Message, error) {
	return f.listAfterFn(ctx, ticketID, lastID)
}

func (f *fakeMessageRepo) MarkAsRead(ctx context.Context, id uint) error {
	return f.markReadFn(ctx, id)
}

func (f *fakeMessageRepo) CountUnread(ctx context.Context, ticketID, userID uint) (int64, error) {
	return f.countFn(ctx, ticketID, userID)
}

func (f *fakeMessageRepo) Delete(ctx context.Context, id uint) error {
	return f.deleteFn(ctx, id)
}

type fakeTicketRepo struct {
	findByIDFn func(ctx context.Context, id uint) (domain.Ticket, error)
}

func (f *fakeTicketRepo) FindByID(ctx context.Context, id uint) (domain.Ticket, error) {
	return f.findByIDFn(ctx, id)
}

type fakeUserRepo struct {
	findByIDFn func(ctx context.Context, id uint) (domain.User, error)
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uint) (domain.User, error) {
	return f.findByIDFn(ctx, id)
}

func openTicketRepo(ownerID uint) *fakeTicketRepo {
	return &fakeTicketRepo{
		findByIDFn: func(ctx context.Context, id uint) (domain.Ticket, error) {
			return domain.Ticket{ID: id, UserID: ownerID, Status: domain.TicketStatusOpen}, nil
		},
	}
}

func usersRepo(users map[uint]domain.User) *fakeUserRepo {
	return &fakeUserRepo{
		findByIDFn: func(ctx context.Context, id uint) (domain.User, error) {
			u, ok := users[id]
			if !ok {
				return domain.User{}, repository.ErrUserNotFound
			}

			return u, nil
		},
	}
}

func TestMessageService_Create_Persists_With_Server_Clock(t *testing.T) {
	req := require.New(t)

	var persisted domain.Message
	repo := &fakeMessageRepo{
		createFn: func(ctx context.Context, message domain.Message) (domain.Message, error) {
			persisted = message
			message.ID = 42

			return message, nil
		},
	}
	svc := NewMessageService(repo, openTicketRepo(1), usersRepo(map[uint]domain.User{
		1: {ID: 1, Name: "Alice"},
	}))

	// Given a draft claiming its own timestamp
	draft := domain.Message{
		TicketID: 7,
		Content:  "hello",
		SentAt:   time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	before := time.Now()
	saved, err := svc.Create(context.Background(), draft, 1)

	// Then the server clock wins and the store-assigned id comes back
	req.NoError(err)
	req.Equal(uint(42), saved.ID)
	req.False(persisted.SentAt.Before(before))
	req.Equal("Alice", saved.SenderName)
	req.False(saved.IsAdmin)
}

func TestMessageService_Create_Labels_Admin_Sender(t *testing.T) {
	req := require.New(t)

	repo := &fakeMessageRepo{
		createFn: func(ctx context.Context, message domain.Message) (domain.Message, error) {
			message.ID = 1

			return message, nil
		},
	}
	svc := NewMessageService(repo, openTicketRepo(2), usersRepo(map[uint]domain.User{
		9: {ID: 9, Name: "Bob", IsAdmin: true},
	}))

	saved, err := svc.Create(context.Background(), domain.Message{TicketID: 7, Content: "hi"}, 9)

	req.NoError(err)
	req.Equal("Bob (Admin)", saved.SenderName)
	req.True(saved.IsAdmin)
}

func TestMessageService_Create_Validation(t *testing.T) {
	req := require.New(t)

	svc := NewMessageService(&fakeMessageRepo{}, openTicketRepo(1), usersRepo(map[uint]domain.User{
		1: {ID: 1},
	}))

	_, err := svc.Create(context.Background(), domain.Message{TicketID: 0, Content: "x"}, 1)
	req.ErrorIs(err, ErrInvalidTicketID)

	_, err = svc.Create(context.Background(), domain.Message{TicketID: 7, Content: "   \t  "}, 1)
	req.ErrorIs(err, ErrEmptyContent)
}

func TestMessageService_Create_Rejects_Closed_Ticket(t *testing.T) {
	req := require.New(t)

	closed := time.Now()
	ticketRepo := &fakeTicketRepo{
		findByIDFn: func(ctx context.Context, id uint) (domain.Ticket, error) {
			return domain.Ticket{ID: id, UserID: 1, Status: domain.TicketStatusClosed, ClosedAt: &closed}, nil
		},
	}
	svc := NewMessageService(&fakeMessageRepo{}, ticketRepo, usersRepo(map[uint]domain.User{
		1: {ID: 1},
	}))

	_, err := svc.Create(context.Background(), domain.Message{TicketID: 7, Content: "too late"}, 1)

	req.ErrorIs(err, ErrTicketClosed)
}

func TestMessageService_Create_Enforces_Owner_Or_Admin(t *testing.T) {
	req := require.New(t)

	repo := &fakeMessageRepo{
		createFn: func(ctx context.Context, message domain.Message) (domain.Message, error) {
			message.ID = 1

			return message, nil
		},
	}
	svc := NewMessageService(repo, openTicketRepo(1), usersRepo(map[uint]domain.User{
		1: {ID: 1, Name: "Owner"},
		2: {ID: 2, Name: "Stranger"},
		3: {ID: 3, Name: "Root", IsAdmin: true},
	}))

	// A stranger is rejected
	_, err := svc.Create(context.Background(), domain.Message{TicketID: 7, Content: "hi"}, 2)
	req.ErrorIs(err, ErrTicketAccess)

	// The owner and an admin both pass
	_, err = svc.Create(context.Background(), domain.Message{TicketID: 7, Content: "hi"}, 1)
	req.NoError(err)
	_, err = svc.Create(context.Background(), domain.Message{TicketID: 7, Content: "hi"}, 3)
	req.NoError(err)
}

func TestMessageService_Create_Unknown_Ticket(t *testing.T) {
	req := require.New(t)

	ticketRepo := &fakeTicketRepo{
		findByIDFn: func(ctx context.Context, id uint) (domain.Ticket, error) {
			return domain.Ticket{}, repository.ErrTicketNotFound
		},
	}
	svc := NewMessageService(&fakeMessageRepo{}, ticketRepo, usersRepo(nil))

	_, err := svc.Create(context.Background(), domain.Message{TicketID: 404, Content: "hi"}, 1)

	req.ErrorIs(err, repository.ErrTicketNotFound)
}

func TestMessageService_ListByTicket_Enriches_Senders(t *testing.T) {
	req := require.New(t)

	repo := &fakeMessageRepo{
		listFn: func(ctx context.Context, ticketID uint) ([]domain.Message, error) {
			return []domain.Message{
				{ID: 1, TicketID: ticketID, SenderID: 1, Content: "question"},
				{ID: 2, TicketID: ticketID, SenderID: 9, Content: "answer"},
				{ID: 3, TicketID: ticketID, SenderID: 500, Content: "ghost"},
			}, nil
		},
	}
	svc := NewMessageService(repo, openTicketRepo(1), usersRepo(map[uint]domain.User{
		1: {ID: 1, Name: "Alice"},
		9: {ID: 9, Name: "Bob", IsAdmin: true},
	}))

	messages, err := svc.ListByTicket(context.Background(), 7, 1)

	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("Alice", messages[0].SenderName)
	req.Equal("Bob (Admin)", messages[1].SenderName)
	req.True(messages[1].IsAdmin)

	// A deleted sender renders as a placeholder instead of failing
	// the whole transcript.
	req.Equal("Unknown User", messages[2].SenderName)
}

func TestMessageService_MarkAsRead_Never_Errors(t *testing.T) {
	req := require.New(t)

	repo := &fakeMessageRepo{
		markReadFn: func(ctx context.Context, id uint) error {
			return repository.ErrMessageNotFound
		},
	}
	svc := NewMessageService(repo, openTicketRepo(1), usersRepo(nil))

	// A failed receipt reports false; it must never disrupt the caller
	req.False(svc.MarkAsRead(context.Background(), 404))
	req.False(svc.MarkAsRead(context.Background(), 0))

	repo.markReadFn = func(ctx context.Context, id uint) error { return nil }
	req.True(svc.MarkAsRead(context.Background(), 1))
}

func TestMessageService_UnreadCount_Authorizes_Caller(t *testing.T) {
	req := require.New(t)

	repo := &fakeMessageRepo{
		countFn: func(ctx context.Context, ticketID, userID uint) (int64, error) {
			return 3, nil
		},
	}
	svc := NewMessageService(repo, openTicketRepo(1), usersRepo(map[uint]domain.User{
		1: {ID: 1},
		2: {ID: 2},
	}))

	count, err := svc.UnreadCount(context.Background(), 7, 1)
	req.NoError(err)
	req.Equal(int64(3), count)

	_, err = svc.UnreadCount(context.Background(), 7, 2)
	req.ErrorIs(err, ErrTicketAccess)
}

func TestMessageService_Delete_Sender_Or_Admin_Only(t *testing.T) {
	req := require.New(t)

	deleted := []uint{}
	repo := &fakeMessageRepo{
		findByIDFn: func(ctx context.Context, id uint) (domain.Message, error) {
			return domain.Message{ID: id, TicketID: 7, SenderID: 1}, nil
		},
		deleteFn: func(ctx context.Context, id uint) error {
			deleted = append(deleted, id)

			return nil
		},
	}
	svc := NewMessageService(repo, openTicketRepo(1), usersRepo(map[uint]domain.User{
		1: {ID: 1},
		2: {ID: 2},
		3: {ID: 3, IsAdmin: true},
	}))

	// A bystander may not delete someone else's message
	err := svc.Delete(context.Background(), 10, 2)
	req.ErrorIs(err, ErrTicketAccess)

	// The sender and an admin may
	req.NoError(svc.Delete(context.Background(), 10, 1))
	req.NoError(svc.Delete(context.Background(), 11, 3))
	req.Equal([]uint{10, 11}, deleted)
}
