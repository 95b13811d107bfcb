package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portfolio-chatbot/internal/model"
	"portfolio-chatbot/internal/repository"
	"portfolio-chatbot/internal/storage"
)

var (
	ErrNothingToDeploy = errors.New("chat has no generated page yet")
	ErrDeployFailed    = errors.New("page upload failed")
)

type DeployService struct {
	chatRepo    *repository.ChatRepository
	messageRepo *repository.MessageRepository
	pages       storage.Gateway
}

type DeployInput struct {
	UserID  uint
	ChatID  uint
	Content string
}

func NewDeployService(chatRepo *repository.ChatRepository, messageRepo *repository.MessageRepository, pages storage.Gateway) *DeployService {
	return &DeployService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		pages:       pages,
	}
}

// Deploy publishes content as the chat's page and records the URL. Deploying
// again overwrites the same object and URL.
func (s *DeployService) Deploy(ctx context.Context, input DeployInput) (string, error) {
	if input.UserID == 0 || input.ChatID == 0 || strings.TrimSpace(input.Content) == "" {
		return "", ErrInvalidInput
	}

	chat, err := ownedChat(s.chatRepo, input.UserID, input.ChatID)
	if err != nil {
		return "", err
	}

	bots, err := s.messageRepo.CountBySender(chat.ID, model.SenderBot)
	if err != nil {
		return "", err
	}
	if bots == 0 {
		return "", ErrNothingToDeploy
	}

	pageURL, err := s.pages.Store(ctx, storage.PageKey(chat.UserID, chat.ID), []byte(input.Content), storage.ContentTypeHTML)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDeployFailed, err)
	}
	if err := s.chatRepo.SetPageURL(chat.ID, pageURL); err != nil {
		return "", err
	}
	return pageURL, nil
}
