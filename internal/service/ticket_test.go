package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/repository"
)

type fakeTicketStore struct {
	createFn     func(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
	findByIDFn   func(ctx context.Context, id uint) (domain.Ticket, error)
	findByUserFn func(ctx context.Context, userID uint) ([]domain.Ticket, error)
	findAllFn    func(ctx context.Context) ([]domain.Ticket, error)
	updateFn     func(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
}

func (f *fakeTicketStore) Create(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	return f.createFn(ctx, ticket)
}

func (f *fakeTicketStore) FindByID(ctx context.Context, id uint) (domain.Ticket, error) {
	return f.findByIDFn(ctx, id)
}

func (f *fakeTicketStore) FindByUserID(ctx context.Context, userID uint) ([]domain.Ticket, error) {
	return f.findByUserFn(ctx, userID)
}

func (f *fakeTicketStore) FindAll(ctx context.Context) ([]domain.Ticket, error) {
	return f.findAllFn(ctx)
}

func (f *fakeTicketStore) Update(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	return f.updateFn(ctx, ticket)
}

func TestTicketService_CreateTicket_Applies_Defaults(t *testing.T) {
	req := require.New(t)

	var created domain.Ticket
	svc := NewTicketService(&fakeTicketStore{
		createFn: func(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
			created = ticket
			ticket.ID = 1

			return ticket, nil
		},
	})

	// A draft claiming to be closed is created open regardless.
	_, err := svc.CreateTicket(context.Background(), domain.Ticket{
		UserID:  1,
		Subject: "help",
		Status:  domain.TicketStatusClosed,
	})

	req.NoError(err)
	req.Equal(domain.TicketStatusOpen, created.Status)
	req.Equal(domain.TicketPriorityMedium, created.Priority)
}

func TestTicketService_GetTicket_Enforces_Access(t *testing.T) {
	req := require.New(t)

	svc := NewTicketService(&fakeTicketStore{
		findByIDFn: func(ctx context.Context, id uint) (domain.Ticket, error) {
			return domain.Ticket{ID: id, UserID: 1, Status: domain.TicketStatusOpen}, nil
		},
	})

	_, err := svc.GetTicket(context.Background(), 7, domain.User{ID: 2})
	req.ErrorIs(err, ErrTicketAccess)

	_, err = svc.GetTicket(context.Background(), 7, domain.User{ID: 1})
	req.NoError(err)

	_, err = svc.GetTicket(context.Background(), 7, domain.User{ID: 2, IsAdmin: true})
	req.NoError(err)
}

func TestTicketService_ListTickets_Admin_Sees_All(t *testing.T) {
	req := require.New(t)

	svc := NewTicketService(&fakeTicketStore{
		findByUserFn: func(ctx context.Context, userID uint) ([]domain.Ticket, error) {
			return []domain.Ticket{{ID: 1, UserID: userID}}, nil
		},
		findAllFn: func(ctx context.Context) ([]domain.Ticket, error) {
			return []domain.Ticket{{ID: 1}, {ID: 2}, {ID: 3}}, nil
		},
	})

	mine, err := svc.ListTickets(context.Background(), domain.User{ID: 1})
	req.NoError(err)
	req.Len(mine, 1)

	all, err := svc.ListTickets(context.Background(), domain.User{ID: 9, IsAdmin: true})
	req.NoError(err)
	req.Len(all, 3)
}

func TestTicketService_CloseTicket_Is_Idempotent(t *testing.T) {
	req := require.New(t)

	closedAt := time.Now().Add(-time.Hour)
	updates := 0
	svc := NewTicketService(&fakeTicketStore{
		findByIDFn: func(ctx context.Context, id uint) (domain.Ticket, error) {
			return domain.Ticket{ID: id, UserID: 1, Status: domain.TicketStatusClosed, ClosedAt: &closedAt}, nil
		},
		updateFn: func(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
			updates++

			return ticket, nil
		},
	})

	// Closing an already closed ticket succeeds without touching it
	ticket, err := svc.CloseTicket(context.Background(), 7, domain.User{ID: 1})

	req.NoError(err)
	req.True(ticket.IsClosed())
	req.Equal(closedAt, *ticket.ClosedAt)
	req.Zero(updates)
}

func TestTicketService_CloseTicket_Sets_ClosedAt(t *testing.T) {
	req := require.New(t)

	svc := NewTicketService(&fakeTicketStore{
		findByIDFn: func(ctx context.Context, id uint) (domain.Ticket, error) {
			return domain.Ticket{ID: id, UserID: 1, Status: domain.TicketStatusOpen}, nil
		},
		updateFn: func(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
			return ticket, nil
		},
	})

	ticket, err := svc.CloseTicket(context.Background(), 7, domain.User{ID: 1})

	req.NoError(err)
	req.True(ticket.IsClosed())
	req.NotNil(ticket.ClosedAt)
}

func TestTicketService_Respond_Rejects_Closed(t *testing.T) {
	req := require.New(t)

	svc := NewTicketService(&fakeTicketStore{
		findByIDFn: func(ctx context.Context, id uint) (domain.Ticket, error) {
			return domain.Ticket{ID: id, UserID: 1, Status: domain.TicketStatusClosed}, nil
		},
	})

	_, err := svc.Respond(context.Background(), 7, "sorry", false)

	req.ErrorIs(err, ErrTicketClosed)
}

func TestTicketService_Respond_Optionally_Closes(t *testing.T) {
	req := require.New(t)

	svc := NewTicketService(&fakeTicketStore{
		findByIDFn: func(ctx context.Context, id uint) (domain.Ticket, error) {
			return domain.Ticket{ID: id, UserID: 1, Status: domain.TicketStatusOpen}, nil
		},
		updateFn: func(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
			return ticket, nil
		},
	})

	ticket, err := svc.Respond(context.Background(), 7, "rebooted the printer", true)

	req.NoError(err)
	req.Equal("rebooted the printer", ticket.AdminResponse)
	req.True(ticket.IsClosed())
	req.NotNil(ticket.ClosedAt)
}

func TestTicketService_GetTicket_Unknown_Ticket(t *testing.T) {
	req := require.New(t)

	svc := NewTicketService(&fakeTicketStore{
		findByIDFn: func(ctx context.Context, id uint) (domain.Ticket, error) {
			return domain.Ticket{}, repository.ErrTicketNotFound
		},
	})

	_, err := svc.GetTicket(context.Background(), 404, domain.User{ID: 1})

	req.ErrorIs(err, ErrTicketNotFound)
}
