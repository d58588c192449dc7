package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/repository"
)

var (
	ErrMessageNotFound = repository.ErrMessageNotFound
	ErrEmptyContent    = errors.New("message content cannot be empty")
	ErrInvalidTicketID = errors.New("ticket id must be positive")
)

type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) (domain.Message, error)
	FindByID(ctx context.Context, id uint) (domain.Message, error)
	FindByTicketID(ctx context.Context, ticketID uint) ([]domain.Message, error)
	FindByTicketIDAfter(ctx context.Context, ticketID, lastID uint) ([]domain.Message, error)
	MarkAsRead(ctx context.Context, id uint) error
	CountUnread(ctx context.Context, ticketID, userID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type MessageTicketRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Ticket, error)
}

type MessageUserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
}

// MessageService is the single authority for chat message persistence
// and access control. Both delivery paths (WebSocket and the HTTP
// fallback) go through it, so a message carries the same store-assigned
// id no matter how it was submitted.
type MessageService struct {
	repo       MessageRepository
	ticketRepo MessageTicketRepository
	userRepo   MessageUserRepository
}

func NewMessageService(repo MessageRepository, ticketRepo MessageTicketRepository, userRepo MessageUserRepository) *MessageService {
	return &MessageService{
		repo:       repo,
		ticketRepo: ticketRepo,
		userRepo:   userRepo,
	}
}

// Create validates and persists a draft. The server clock is
// authoritative for SentAt; the sender's name and admin flag are taken
// from the user record, never from the draft.
func (s *MessageService) Create(ctx context.Context, draft domain.Message, senderID uint) (domain.Message, error) {
	if draft.TicketID == 0 {
		return domain.Message{}, ErrInvalidTicketID
	}
	if strings.TrimSpace(draft.Content) == "" {
		return domain.Message{}, ErrEmptyContent
	}

	ticket, err := s.ticketRepo.FindByID(ctx, draft.TicketID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("s.ticketRepo.FindByID -> %w", err)
	}

	sender, err := s.userRepo.FindByID(ctx, senderID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("s.userRepo.FindByID -> %w", err)
	}

	if !ticket.CanAccess(sender) {
		return domain.Message{}, ErrTicketAccess
	}
	if ticket.IsClosed() {
		return domain.Message{}, ErrTicketClosed
	}

	created, err := s.repo.Create(ctx, domain.Message{
		TicketID: draft.TicketID,
		SenderID: senderID,
		Content:  draft.Content,
		SentAt:   time.Now(),
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	created.SenderName = sender.Name
	created.IsAdmin = sender.IsAdmin
	created.NormalizeSenderName()

	return created, nil
}

// ListByTicket returns the full transcript, oldest first, applying the
// same owner-or-admin predicate as Create.
func (s *MessageService) ListByTicket(ctx context.Context, ticketID, callerID uint) ([]domain.Message, error) {
	if err := s.authorize(ctx, ticketID, callerID); err != nil {
		return nil, err
	}

	messages, err := s.repo.FindByTicketID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByTicketID -> %w", err)
	}

	return s.enrich(ctx, messages)
}

// ListAfter returns messages with id > lastID, for incremental polling.
func (s *MessageService) ListAfter(ctx context.Context, ticketID, lastID, callerID uint) ([]domain.Message, error) {
	if err := s.authorize(ctx, ticketID, callerID); err != nil {
		return nil, err
	}

	messages, err := s.repo.FindByTicketIDAfter(ctx, ticketID, lastID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByTicketIDAfter -> %w", err)
	}

	return s.enrich(ctx, messages)
}

// MarkAsRead is best effort: failures are logged and reported as false,
// never as an error, so read tracking can never block the chat flow.
func (s *MessageService) MarkAsRead(ctx context.Context, messageID uint) bool {
	if messageID == 0 {
		return false
	}

	if err := s.repo.MarkAsRead(ctx, messageID); err != nil {
		zap.L().Warn("failed to mark message as read",
			zap.Uint("message_id", messageID),
			zap.Error(err))

		return false
	}

	return true
}

func (s *MessageService) UnreadCount(ctx context.Context, ticketID, callerID uint) (int64, error) {
	if err := s.authorize(ctx, ticketID, callerID); err != nil {
		return 0, err
	}

	count, err := s.repo.CountUnread(ctx, ticketID, callerID)
	if err != nil {
		return 0, fmt.Errorf("s.repo.CountUnread -> %w", err)
	}

	return count, nil
}

// Delete removes a message; only the sender or an admin may delete.
func (s *MessageService) Delete(ctx context.Context, messageID, callerID uint) error {
	message, err := s.repo.FindByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	caller, err := s.userRepo.FindByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("s.userRepo.FindByID -> %w", err)
	}

	if message.SenderID != callerID && !caller.IsAdmin {
		return ErrTicketAccess
	}

	if err = s.repo.Delete(ctx, messageID); err != nil {
		return fmt.Errorf("s.repo.Delete -> %w", err)
	}

	return nil
}

func (s *MessageService) authorize(ctx context.Context, ticketID, callerID uint) error {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("s.ticketRepo.FindByID -> %w", err)
	}

	caller, err := s.userRepo.FindByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("s.userRepo.FindByID -> %w", err)
	}

	if !ticket.CanAccess(caller) {
		return ErrTicketAccess
	}

	return nil
}

// enrich fills sender display fields from the user records. Unknown
// senders get a placeholder rather than failing the whole list.
func (s *MessageService) enrich(ctx context.Context, messages []domain.Message) ([]domain.Message, error) {
	users := map[uint]domain.User{}

	for i := range messages {
		sender, ok := users[messages[i].SenderID]
		if !ok {
			var err error
			sender, err = s.userRepo.FindByID(ctx, messages[i].SenderID)
			if err != nil {
				if !errors.Is(err, repository.ErrUserNotFound) {
					return nil, fmt.Errorf("s.userRepo.FindByID -> %w", err)
				}
				sender = domain.User{Name: "Unknown User"}
			}
			users[messages[i].SenderID] = sender
		}

		messages[i].SenderName = sender.Name
		messages[i].IsAdmin = sender.IsAdmin
		messages[i].NormalizeSenderName()
	}

	return messages, nil
}
