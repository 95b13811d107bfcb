package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-chatbot/internal/app"
	"portfolio-chatbot/internal/pkg/jwtutil"
	"portfolio-chatbot/internal/transport/http/middleware"
	"portfolio-chatbot/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Register(app.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(c, err, "signup failed")
		return
	}

	response.JSON(c, http.StatusCreated, gin.H{"token": result.Token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(c, err, "login failed")
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"token": result.Token})
}

func (h *AuthHandler) User(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		writeServiceError(c, err, "an error occurred while fetching user information")
		return
	}
	if user == nil {
		response.Error(c, http.StatusNotFound, response.CodeUserNotFound, "user not found")
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	claims, _ := c.Get(middleware.ContextClaimsKey)
	typed, _ := claims.(*jwtutil.Claims)
	if err := h.authService.Logout(c.Request.Context(), typed); err != nil {
		writeServiceError(c, err, "logout failed")
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"revoked": true})
}
