package repository

import (
	"fmt"

	"gorm.io/gorm"

	"portfolio-chatbot/internal/model"
)

type GenerationRecordRepository struct {
	db *gorm.DB
}

func NewGenerationRecordRepository(db *gorm.DB) *GenerationRecordRepository {
	return &GenerationRecordRepository{db: db}
}

func (r *GenerationRecordRepository) Create(record *model.GenerationRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create generation record failed: %w", err)
	}
	return nil
}

func (r *GenerationRecordRepository) ListByChatID(chatID uint) ([]model.GenerationRecord, error) {
	var records []model.GenerationRecord
	if err := r.db.Where("chat_id = ?", chatID).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list generation records failed: %w", err)
	}
	return records, nil
}
