package repository

import (
	"context"
	"fmt"

	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/repository/dao"
)

var ErrMessageNotFound = dao.ErrMessageNotFound

type MessageDAO interface {
	Insert(ctx context.Context, message dao.Message) (dao.Message, error)
	FindByID(ctx context.Context, id uint) (dao.Message, error)
	FindByTicketID(ctx context.Context, ticketID uint) ([]dao.Message, error)
	FindByTicketIDAfter(ctx context.Context, ticketID, lastID uint) ([]dao.Message, error)
	MarkAsRead(ctx context.Context, id uint) error
	CountUnread(ctx context.Context, ticketID, userID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type MessageRepository struct {
	dao MessageDAO
}

func NewMessageRepository(dao MessageDAO) *MessageRepository {
	return &MessageRepository{
		dao: dao,
	}
}

func (r *MessageRepository) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	created, err := r.dao.Insert(ctx, dao.Message{
		TicketID: message.TicketID,
		SenderID: message.SenderID,
		Content:  message.Content,
		SentAt:   message.SentAt,
		IsRead:   false,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id uint) (domain.Message, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Message{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *MessageRepository) FindByTicketID(ctx context.Context, ticketID uint) ([]domain.Message, error) {
	found, err := r.dao.FindByTicketID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByTicketID -> %w", err)
	}

	return r.daoSliceToDomain(found), nil
}

func (r *MessageRepository) FindByTicketIDAfter(ctx context.Context, ticketID, lastID uint) ([]domain.Message, error) {
	found, err := r.dao.FindByTicketIDAfter(ctx, ticketID, lastID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByTicketIDAfter -> %w", err)
	}

	return r.daoSliceToDomain(found), nil
}

func (r *MessageRepository) MarkAsRead(ctx context.Context, id uint) error {
	if err := r.dao.MarkAsRead(ctx, id); err != nil {
		return fmt.Errorf("r.dao.MarkAsRead -> %w", err)
	}

	return nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, ticketID, userID uint) (int64, error) {
	count, err := r.dao.CountUnread(ctx, ticketID, userID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountUnread -> %w", err)
	}

	return count, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *MessageRepository) daoToDomain(m dao.Message) domain.Message {
	return domain.Message{
		ID:       m.ID,
		TicketID: m.TicketID,
		SenderID: m.SenderID,
		Content:  m.Content,
		SentAt:   m.SentAt,
		IsRead:   m.IsRead,
	}
}

func (r *MessageRepository) daoSliceToDomain(messages []dao.Message) []domain.Message {
	result := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		result = append(result, r.daoToDomain(m))
	}

	return result
}
