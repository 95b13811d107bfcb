package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"portfolio-chatbot/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *model.Chat) error {
	chat.PageURL = ""
	if err := r.db.Create(chat).Error; err != nil {
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByID(id uint) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.First(&chat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

// ListByUserID returns the user's chats, newest first.
func (r *ChatRepository) ListByUserID(userID uint) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	return chats, nil
}

// SetPageURL overwrites the deployed page URL; repeating it with the same value is a no-op.
func (r *ChatRepository) SetPageURL(chatID uint, pageURL string) error {
	res := r.db.Model(&model.Chat{}).Where("id = ?", chatID).Update("page_url", pageURL)
	if res.Error != nil {
		return fmt.Errorf("update chat page url failed: %w", res.Error)
	}
	return nil
}
