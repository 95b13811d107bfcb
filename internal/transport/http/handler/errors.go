package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-chatbot/internal/app"
	"portfolio-chatbot/internal/transport/http/middleware"
	"portfolio-chatbot/internal/transport/http/response"
)

// writeServiceError maps service errors to status codes. Upstream failures are
// attached to the gin context for the access log and answered generically.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing or invalid fields")
	case errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeEmptyMessage, err.Error())
	case errors.Is(err, app.ErrInvalidResume):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidResume, app.ErrInvalidResume.Error())
	case errors.Is(err, app.ErrNothingToDeploy):
		response.Error(c, http.StatusBadRequest, response.CodeNothingToDeploy, err.Error())
	case errors.Is(err, app.ErrInvalidCredential):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "invalid credentials")
	case errors.Is(err, app.ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "unauthorized access")
	case errors.Is(err, app.ErrChatNotFound):
		response.Error(c, http.StatusNotFound, response.CodeChatNotFound, "chat not found")
	case errors.Is(err, app.ErrEmailExists):
		response.Error(c, http.StatusConflict, response.CodeEmailExists, "email already exists")
	case errors.Is(err, app.ErrUploadFailed), errors.Is(err, app.ErrDeployFailed):
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeUploadFailed, fallback)
	case errors.Is(err, app.ErrGenerationFailed):
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeGenerationFailed, "failed to generate a reply, please try again")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok && userID != 0
}
