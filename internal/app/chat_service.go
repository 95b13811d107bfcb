package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"portfolio-chatbot/internal/generation"
	"portfolio-chatbot/internal/model"
	"portfolio-chatbot/internal/pkg/pdfextract"
	"portfolio-chatbot/internal/repository"
	"portfolio-chatbot/internal/storage"
)

var (
	ErrChatNotFound     = errors.New("chat not found")
	ErrForbidden        = errors.New("chat belongs to another user")
	ErrMessageEmpty     = errors.New("message content is empty")
	ErrInvalidResume    = errors.New("resume is not a readable pdf")
	ErrUploadFailed     = errors.New("resume upload failed")
	ErrGenerationFailed = errors.New("page generation failed")
)

const maxTitleLength = 100

type HistoryCache interface {
	GetHistory(ctx context.Context, chatID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, chatID uint, messages []model.Message) error
	Invalidate(ctx context.Context, chatID uint) error
	MarkDirty(ctx context.Context, chatID uint) error
	IsDirty(ctx context.Context, chatID uint) (bool, error)
}

type GenerationRecordPublisher interface {
	PublishGenerationRecord(ctx context.Context, record model.GenerationRecord) error
}

type ChatService struct {
	chatRepo     *repository.ChatRepository
	messageRepo  *repository.MessageRepository
	documents    storage.Gateway
	invoker      generation.Invoker
	historyCache HistoryCache
	records      GenerationRecordPublisher
	extractText  func([]byte) (string, error)
}

type CreateChatInput struct {
	UserID      uint
	Title       string
	Description string
	Filename    string
	Resume      []byte
}

type CreateChatResult struct {
	Chat    *model.Chat
	Message *model.Message
}

type SendMessageInput struct {
	UserID uint
	ChatID uint
	Text   string
}

type ChatSummary struct {
	Chat        model.Chat
	Status      model.ChatStatus
	Deployed    bool
	LastMessage string
	LastUpdated *time.Time
}

// historyCache and records may be nil.
func NewChatService(
	chatRepo *repository.ChatRepository,
	messageRepo *repository.MessageRepository,
	documents storage.Gateway,
	invoker generation.Invoker,
	historyCache HistoryCache,
	records GenerationRecordPublisher,
) *ChatService {
	return &ChatService{
		chatRepo:     chatRepo,
		messageRepo:  messageRepo,
		documents:    documents,
		invoker:      invoker,
		historyCache: historyCache,
		records:      records,
		extractText:  pdfextract.ExtractText,
	}
}

// CreateChat stores the résumé text, opens the chat and asks for the first page.
// When generation fails the chat row is kept without messages.
func (s *ChatService) CreateChat(ctx context.Context, input CreateChatInput) (*CreateChatResult, error) {
	title := strings.TrimSpace(input.Title)
	if input.UserID == 0 || title == "" || len([]rune(title)) > maxTitleLength || len(input.Resume) == 0 {
		return nil, ErrInvalidInput
	}
	description := strings.TrimSpace(input.Description)

	resumeText, err := s.extractText(input.Resume)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResume, err)
	}

	resumeURL, err := s.documents.Store(ctx, storage.ResumeKey(input.UserID, input.Filename), []byte(resumeText), storage.ContentTypeText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	chat := &model.Chat{
		UserID:                input.UserID,
		Title:                 title,
		AdditionalDescription: description,
		ResumeURL:             resumeURL,
	}
	if err := s.chatRepo.Create(chat); err != nil {
		return nil, err
	}

	reply, err := s.generate(ctx, chat, model.TriggerCreateChat, InitialPrompt(description, resumeText))
	if err != nil {
		return nil, err
	}

	botMessage, err := s.appendMessage(ctx, chat.ID, model.SenderBot, reply)
	if err != nil {
		return nil, err
	}
	return &CreateChatResult{Chat: chat, Message: botMessage}, nil
}

// SendMessage records the user's turn, regenerates from the whole history and
// records the reply. A failed generation leaves the user message in place.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*model.Message, error) {
	if input.UserID == 0 || input.ChatID == 0 {
		return nil, ErrInvalidInput
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrMessageEmpty
	}

	chat, err := ownedChat(s.chatRepo, input.UserID, input.ChatID)
	if err != nil {
		return nil, err
	}

	if _, err := s.appendMessage(ctx, chat.ID, model.SenderUser, text); err != nil {
		return nil, err
	}

	// The prompt must see the message just written, so it never comes from the cache.
	history, err := s.messageRepo.ListByChatID(chat.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.generate(ctx, chat, model.TriggerSendMessage, ConversationPrompt(history))
	if err != nil {
		return nil, err
	}
	return s.appendMessage(ctx, chat.ID, model.SenderBot, reply)
}

func (s *ChatService) ListChats(ctx context.Context, userID uint) ([]ChatSummary, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	chats, err := s.chatRepo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		latest, err := s.messageRepo.LatestByChatID(chat.ID)
		if err != nil {
			return nil, err
		}
		summary := ChatSummary{
			Chat:     chat,
			Status:   model.StatusFromLatest(latest),
			Deployed: chat.PageURL != "",
		}
		if latest != nil {
			summary.LastMessage = latest.Text
			at := latest.CreatedAt
			summary.LastUpdated = &at
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *ChatService) ListMessages(ctx context.Context, userID, chatID uint) ([]model.Message, error) {
	if userID == 0 || chatID == 0 {
		return nil, ErrInvalidInput
	}
	if _, err := ownedChat(s.chatRepo, userID, chatID); err != nil {
		return nil, err
	}
	return s.history(ctx, chatID)
}

func (s *ChatService) appendMessage(ctx context.Context, chatID uint, sender, text string) (*model.Message, error) {
	if s.historyCache != nil {
		if err := s.historyCache.MarkDirty(ctx, chatID); err != nil {
			slog.WarnContext(ctx, "history cache mark dirty failed", "chat_id", chatID, "error", err)
		}
	}
	msg, err := s.messageRepo.Append(chatID, sender, text)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if err := s.historyCache.Invalidate(ctx, chatID); err != nil {
			slog.WarnContext(ctx, "history cache invalidate failed", "chat_id", chatID, "error", err)
		}
	}
	return msg, nil
}

func (s *ChatService) history(ctx context.Context, chatID uint) ([]model.Message, error) {
	if s.historyCache != nil && !s.historyDirty(ctx, chatID) {
		cached, hit, err := s.historyCache.GetHistory(ctx, chatID)
		if err == nil && hit {
			return cached, nil
		}
		if err != nil {
			slog.WarnContext(ctx, "history cache read failed", "chat_id", chatID, "error", err)
		}
	}

	messages, err := s.messageRepo.ListByChatID(chatID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil && !s.historyDirty(ctx, chatID) {
		if err := s.historyCache.SetHistory(ctx, chatID, messages); err != nil {
			slog.WarnContext(ctx, "history cache write failed", "chat_id", chatID, "error", err)
		}
	}
	return messages, nil
}

// historyDirty reports true when the marker is set or cannot be read.
func (s *ChatService) historyDirty(ctx context.Context, chatID uint) bool {
	dirty, err := s.historyCache.IsDirty(ctx, chatID)
	if err != nil {
		slog.WarnContext(ctx, "history cache dirty check failed", "chat_id", chatID, "error", err)
		return true
	}
	return dirty
}

func (s *ChatService) generate(ctx context.Context, chat *model.Chat, trigger, prompt string) (string, error) {
	start := time.Now()
	reply, err := s.invoker.Generate(ctx, prompt, chat.ResumeURL)

	record := model.GenerationRecord{
		ChatID:        chat.ID,
		UserID:        chat.UserID,
		Trigger:       trigger,
		Driver:        s.invoker.Driver(),
		PromptChars:   len(prompt),
		ResponseChars: len(reply),
		DurationMS:    time.Since(start).Milliseconds(),
		Succeeded:     err == nil,
		CreatedAt:     start,
	}
	if err != nil {
		record.Error = err.Error()
	}
	s.publishRecord(ctx, record)

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return reply, nil
}

func (s *ChatService) publishRecord(ctx context.Context, record model.GenerationRecord) {
	if s.records == nil {
		return
	}
	if err := s.records.PublishGenerationRecord(context.WithoutCancel(ctx), record); err != nil {
		slog.WarnContext(ctx, "publish generation record failed", "chat_id", record.ChatID, "error", err)
	}
}

func ownedChat(chatRepo *repository.ChatRepository, userID, chatID uint) (*model.Chat, error) {
	chat, err := chatRepo.GetByID(chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if chat.UserID != userID {
		return nil, ErrForbidden
	}
	return chat, nil
}
