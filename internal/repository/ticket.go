package repository

import (
	"context"
	"fmt"

	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/repository/dao"
)

var ErrTicketNotFound = dao.ErrTicketNotFound

type TicketDAO interface {
	Insert(ctx context.Context, ticket dao.Ticket) (dao.Ticket, error)
	FindByID(ctx context.Context, id uint) (dao.Ticket, error)
	FindByUserID(ctx context.Context, userID uint) ([]dao.Ticket, error)
	FindAll(ctx context.Context) ([]dao.Ticket, error)
	Update(ctx context.Context, ticket dao.Ticket) (dao.Ticket, error)
}

type TicketRepository struct {
	dao TicketDAO
}

func NewTicketRepository(dao TicketDAO) *TicketRepository {
	return &TicketRepository{
		dao: dao,
	}
}

func (r *TicketRepository) Create(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	created, err := r.dao.Insert(ctx, dao.Ticket{
		UserID:      ticket.UserID,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		Category:    ticket.Category,
	})
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id uint) (domain.Ticket, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *TicketRepository) FindByUserID(ctx context.Context, userID uint) ([]domain.Ticket, error) {
	found, err := r.dao.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByUserID -> %w", err)
	}

	return r.daoSliceToDomain(found), nil
}

func (r *TicketRepository) FindAll(ctx context.Context) ([]domain.Ticket, error) {
	found, err := r.dao.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	return r.daoSliceToDomain(found), nil
}

func (r *TicketRepository) Update(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	existing, err := r.dao.FindByID(ctx, ticket.ID)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	existing.Subject = ticket.Subject
	existing.Description = ticket.Description
	existing.Status = ticket.Status
	existing.Priority = ticket.Priority
	existing.Category = ticket.Category
	existing.AdminResponse = ticket.AdminResponse
	existing.ClosedAt = ticket.ClosedAt

	updated, err := r.dao.Update(ctx, existing)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *TicketRepository) daoToDomain(t dao.Ticket) domain.Ticket {
	return domain.Ticket{
		ID:            t.ID,
		UserID:        t.UserID,
		Subject:       t.Subject,
		Description:   t.Description,
		Status:        t.Status,
		Priority:      t.Priority,
		Category:      t.Category,
		AdminResponse: t.AdminResponse,
		CreatedAt:     t.CreatedAt,
		ClosedAt:      t.ClosedAt,
	}
}

func (r *TicketRepository) daoSliceToDomain(tickets []dao.Ticket) []domain.Ticket {
	result := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		result = append(result, r.daoToDomain(t))
	}

	return result
}
