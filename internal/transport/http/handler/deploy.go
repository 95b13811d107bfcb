package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-chatbot/internal/app"
	"portfolio-chatbot/internal/transport/http/response"
)

type DeployHandler struct {
	deployService *app.DeployService
}

type DeployRequest struct {
	ChatID  uint   `json:"chat_id"`
	Content string `json:"content"`
}

func NewDeployHandler(deployService *app.DeployService) *DeployHandler {
	return &DeployHandler{deployService: deployService}
}

func (h *DeployHandler) Deploy(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "chat id and content are required")
		return
	}
	if req.ChatID == 0 || req.Content == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "chat id and content are required")
		return
	}

	pageURL, err := h.deployService.Deploy(c.Request.Context(), app.DeployInput{
		UserID:  userID,
		ChatID:  req.ChatID,
		Content: req.Content,
	})
	if err != nil {
		writeServiceError(c, err, "failed to deploy page")
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"page_url": pageURL})
}
