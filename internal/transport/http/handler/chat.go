package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-chatbot/internal/app"
	"portfolio-chatbot/internal/model"
	"portfolio-chatbot/internal/transport/http/response"
)

type ChatHandler struct {
	chatService    *app.ChatService
	maxUploadBytes int64
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

type messageView struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

type chatSummaryView struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	PageURL     string           `json:"page_url"`
	Status      model.ChatStatus `json:"status"`
	Deployed    bool             `json:"deployed"`
	LastMessage string           `json:"lastMessage"`
	LastUpdated any              `json:"lastUpdated"`
}

func NewChatHandler(chatService *app.ChatService, maxUploadBytes int64) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBadRequest, "resume is too large")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing required fields")
		return
	}
	title := firstValue(form.Value["title"])
	description := firstValue(form.Value["additionalDescription"])
	files := form.File["resume"]
	if title == "" || len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing required fields")
		return
	}
	file := files[0]

	resume, err := readFormFile(file)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "resume could not be read")
		return
	}

	result, err := h.chatService.CreateChat(c.Request.Context(), app.CreateChatInput{
		UserID:      userID,
		Title:       title,
		Description: description,
		Filename:    file.Filename,
		Resume:      resume,
	})
	if err != nil {
		writeServiceError(c, err, "failed to upload resume")
		return
	}

	msg := toMessageView(*result.Message)
	response.JSON(c, http.StatusCreated, gin.H{
		"chat": gin.H{
			"id":       result.Chat.ID,
			"title":    result.Chat.Title,
			"page_url": result.Chat.PageURL,
			"initialMessage": gin.H{
				"sender": msg.Sender,
				"text":   msg.Text,
			},
			"messages": []messageView{msg},
		},
	})
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	summaries, err := h.chatService.ListChats(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "list chats failed")
		return
	}

	chats := make([]chatSummaryView, 0, len(summaries))
	for _, s := range summaries {
		view := chatSummaryView{
			ID:          s.Chat.ID,
			Title:       s.Chat.Title,
			PageURL:     s.Chat.PageURL,
			Status:      s.Status,
			Deployed:    s.Deployed,
			LastMessage: s.LastMessage,
			LastUpdated: "",
		}
		if s.LastUpdated != nil {
			view.LastUpdated = *s.LastUpdated
		}
		chats = append(chats, view)
	}
	response.JSON(c, http.StatusOK, gin.H{"chats": chats})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	reply, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		UserID: userID,
		ChatID: chatID,
		Text:   req.Message,
	})
	if err != nil {
		writeServiceError(c, err, "send message failed")
		return
	}

	response.JSON(c, http.StatusCreated, gin.H{"message": toMessageView(*reply)})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	messages, err := h.chatService.ListMessages(c.Request.Context(), userID, chatID)
	if err != nil {
		writeServiceError(c, err, "list messages failed")
		return
	}

	views := make([]messageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, toMessageView(msg))
	}
	response.JSON(c, http.StatusOK, gin.H{"messages": views})
}

func parseChatID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return 0, false
	}
	return uint(id), true
}

func toMessageView(msg model.Message) messageView {
	return messageView{
		Sender: msg.Sender,
		Text:   msg.Text,
		Time:   msg.CreatedAt,
	}
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
