package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/repository"
)

var (
	ErrTicketNotFound = repository.ErrTicketNotFound
	ErrTicketClosed   = errors.New("ticket is closed")
	ErrTicketAccess   = errors.New("user may not access this ticket")
)

type TicketRepository interface {
	Create(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
	FindByID(ctx context.Context, id uint) (domain.Ticket, error)
	FindByUserID(ctx context.Context, userID uint) ([]domain.Ticket, error)
	FindAll(ctx context.Context) ([]domain.Ticket, error)
	Update(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
}

type TicketService struct {
	repo TicketRepository
}

func NewTicketService(repo TicketRepository) *TicketService {
	return &TicketService{
		repo: repo,
	}
}

func (s *TicketService) CreateTicket(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	ticket.Status = domain.TicketStatusOpen
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	created, err := s.repo.Create(ctx, ticket)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

// GetTicket enforces the owner-or-admin predicate on reads.
func (s *TicketService) GetTicket(ctx context.Context, ticketID uint, caller domain.User) (domain.Ticket, error) {
	ticket, err := s.repo.FindByID(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if !ticket.CanAccess(caller) {
		return domain.Ticket{}, ErrTicketAccess
	}

	return ticket, nil
}

func (s *TicketService) ListTickets(ctx context.Context, caller domain.User) ([]domain.Ticket, error) {
	if caller.IsAdmin {
		tickets, err := s.repo.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("s.repo.FindAll -> %w", err)
		}

		return tickets, nil
	}

	tickets, err := s.repo.FindByUserID(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByUserID -> %w", err)
	}

	return tickets, nil
}

// CloseTicket is terminal; closed tickets reject further messages and
// cannot reopen.
func (s *TicketService) CloseTicket(ctx context.Context, ticketID uint, caller domain.User) (domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, ticketID, caller)
	if err != nil {
		return domain.Ticket{}, err
	}

	if ticket.IsClosed() {
		return ticket, nil
	}

	now := time.Now()
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now

	updated, err := s.repo.Update(ctx, ticket)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	return updated, nil
}

// Respond records the admin response and optionally closes the ticket
// in the same update.
func (s *TicketService) Respond(ctx context.Context, ticketID uint, response string, closeTicket bool) (domain.Ticket, error) {
	ticket, err := s.repo.FindByID(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if ticket.IsClosed() {
		return domain.Ticket{}, ErrTicketClosed
	}

	ticket.AdminResponse = response
	if closeTicket {
		now := time.Now()
		ticket.Status = domain.TicketStatusClosed
		ticket.ClosedAt = &now
	}

	updated, err := s.repo.Update(ctx, ticket)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	return updated, nil
}
