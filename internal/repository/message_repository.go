package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"portfolio-chatbot/internal/model"
)

var ErrInvalidSender = errors.New("invalid message sender")

type MessageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db, now: time.Now}
}

// Append stores a message whose timestamp is never earlier than the chat's latest one,
// so reading by (created_at, id) always yields insertion order even across clock skew.
func (r *MessageRepository) Append(chatID uint, sender, text string) (*model.Message, error) {
	if !model.ValidSender(sender) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSender, sender)
	}
	message := &model.Message{
		ChatID: chatID,
		Sender: sender,
		Text:   text,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		createdAt := r.now().UTC()
		latest, err := latestByChatID(tx, chatID)
		if err != nil {
			return err
		}
		if latest != nil && latest.CreatedAt.After(createdAt) {
			createdAt = latest.CreatedAt
		}
		message.CreatedAt = createdAt
		return tx.Create(message).Error
	})
	if err != nil {
		return nil, fmt.Errorf("append message failed: %w", err)
	}
	return message, nil
}

func (r *MessageRepository) ListByChatID(chatID uint) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC").Order("id ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

// LatestByChatID returns the most recent message of a chat, or nil for an empty chat.
func (r *MessageRepository) LatestByChatID(chatID uint) (*model.Message, error) {
	latest, err := latestByChatID(r.db, chatID)
	if err != nil {
		return nil, fmt.Errorf("get latest message failed: %w", err)
	}
	return latest, nil
}

func (r *MessageRepository) CountBySender(chatID uint, sender string) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Message{}).Where("chat_id = ? AND sender = ?", chatID, sender).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count messages failed: %w", err)
	}
	return count, nil
}

func latestByChatID(db *gorm.DB, chatID uint) (*model.Message, error) {
	var message model.Message
	err := db.Where("chat_id = ?", chatID).Order("created_at DESC").Order("id DESC").Limit(1).Take(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}
