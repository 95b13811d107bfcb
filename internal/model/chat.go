package model

import "time"

// Chat is one portfolio-generation engagement anchored to a single uploaded résumé.
// PageURL stays empty until the first deployment.
type Chat struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                uint      `gorm:"not null;index" json:"user_id"`
	Title                 string    `gorm:"size:100;not null" json:"title"`
	AdditionalDescription string    `gorm:"type:text" json:"additional_description"`
	ResumeURL             string    `gorm:"size:512;not null" json:"resume_url"`
	PageURL               string    `gorm:"size:512;not null;default:''" json:"page_url"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type ChatStatus string

const (
	ChatStatusCreated       ChatStatus = "created"
	ChatStatusAwaitingReply ChatStatus = "awaiting_reply"
	ChatStatusConversing    ChatStatus = "conversing"
)

// StatusFromLatest derives the conversation state from the most recent message.
func StatusFromLatest(latest *Message) ChatStatus {
	if latest == nil {
		return ChatStatusCreated
	}
	if latest.Sender == SenderUser {
		return ChatStatusAwaitingReply
	}
	return ChatStatusConversing
}
