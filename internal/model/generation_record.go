package model

import "time"

const (
	TriggerCreateChat  = "create_chat"
	TriggerSendMessage = "send_message"
)

// GenerationRecord is an audit row for one call to the generation function.
// Rows arrive through the message queue and are never read on the request path.
type GenerationRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ChatID        uint      `gorm:"not null;index" json:"chat_id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Trigger       string    `gorm:"size:32;not null" json:"trigger"`
	Driver        string    `gorm:"size:32;not null" json:"driver"`
	PromptChars   int       `json:"prompt_chars"`
	ResponseChars int       `json:"response_chars"`
	DurationMS    int64     `json:"duration_ms"`
	Succeeded     bool      `json:"succeeded"`
	Error         string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
