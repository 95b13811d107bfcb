package mysql

import (
	"fmt"
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"portfolio-chatbot/internal/model"
)

func migrator(db *gorm.DB) *gormigrate.Gormigrate {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0001_users_chats_messages",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.User{}, &model.Chat{}, &model.Message{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&model.Message{}, &model.Chat{}, &model.User{})
			},
		},
		{
			ID: "0002_generation_records",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.GenerationRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&model.GenerationRecord{})
			},
		},
	})

	// A clean database skips the history and gets the latest schema directly.
	m.InitSchema(func(tx *gorm.DB) error {
		slog.Info("clean database detected, running full schema initialization")
		return tx.AutoMigrate(&model.User{}, &model.Chat{}, &model.Message{}, &model.GenerationRecord{})
	})
	return m
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	if err := migrator(db).Migrate(); err != nil {
		return fmt.Errorf("migrate schema failed: %w", err)
	}
	return nil
}
