package model

import "time"

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    uint      `gorm:"not null;index:idx_messages_chat_created,priority:1" json:"chat_id"`
	Sender    string    `gorm:"size:16;not null" json:"sender"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index:idx_messages_chat_created,priority:2" json:"created_at"`
}

func ValidSender(sender string) bool {
	return sender == SenderUser || sender == SenderBot
}
