package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

type Message struct {
	ID uint `gorm:"primaryKey"`

	TicketID uint `gorm:"not null;index"`
	SenderID uint `gorm:"not null"`

	Content string `gorm:"not null"`

	SentAt time.Time `gorm:"not null;index"`
	IsRead bool      `gorm:"not null;default:false"`
}

type MessageDAO struct {
	db *gorm.DB
}

func NewMessageDAO(db *gorm.DB) *MessageDAO {
	return &MessageDAO{
		db: db,
	}
}

func (d *MessageDAO) Insert(ctx context.Context, message Message) (Message, error) {
	result := d.db.WithContext(ctx).Create(&message)
	if result.Error != nil {
		return Message{}, result.Error
	}

	return message, nil
}

func (d *MessageDAO) FindByID(ctx context.Context, id uint) (Message, error) {
	var message Message

	result := d.db.WithContext(ctx).First(&message, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Message{}, ErrMessageNotFound
		}

		return Message{}, result.Error
	}

	return message, nil
}

// FindByTicketID returns the ticket's full transcript. The id tiebreak
// keeps the order stable when two messages share a timestamp, so poll
// results never disagree with broadcast order.
func (d *MessageDAO) FindByTicketID(ctx context.Context, ticketID uint) ([]Message, error) {
	var messages []Message

	result := d.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("sent_at ASC, id ASC").
		Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}

	return messages, nil
}

func (d *MessageDAO) FindByTicketIDAfter(ctx context.Context, ticketID, lastID uint) ([]Message, error) {
	var messages []Message

	result := d.db.WithContext(ctx).
		Where("ticket_id = ? AND id > ?", ticketID, lastID).
		Order("sent_at ASC, id ASC").
		Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}

	return messages, nil
}

func (d *MessageDAO) MarkAsRead(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).
		Model(&Message{}).
		Where("id = ?", id).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// CountUnread counts unread messages on a ticket that were sent by
// somebody other than the given user.
func (d *MessageDAO) CountUnread(ctx context.Context, ticketID, userID uint) (int64, error) {
	var count int64

	result := d.db.WithContext(ctx).
		Model(&Message{}).
		Where("ticket_id = ? AND sender_id <> ? AND is_read = ?", ticketID, userID, false).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

func (d *MessageDAO) Delete(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&Message{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}

	return nil
}
