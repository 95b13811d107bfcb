package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"portfolio-chatbot/internal/bootstrap"
	"portfolio-chatbot/internal/transport/http/handler"
	"portfolio-chatbot/internal/transport/http/middleware"
	"portfolio-chatbot/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()

	maxUpload := int64(app.Config.App.MaxUploadMB) << 20
	if maxUpload > 0 {
		router.MaxMultipartMemory = maxUpload
	}
	router.Use(
		middleware.RequestID(),
		middleware.RequestLog(app.Logger),
		gin.Recovery(),
		cors.New(corsConfig(app.Config.App.AllowedOrigins)),
	)

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/check", healthHandler.Live)
	router.GET("/healthz", healthHandler.Check)

	services := app.Services
	authHandler := handler.NewAuthHandler(services.Auth)
	chatHandler := handler.NewChatHandler(services.Chat, maxUpload)
	deployHandler := handler.NewDeployHandler(services.Deploy)
	requireAuth := middleware.AuthJWT(services.Auth)

	api := router.Group("/api")
	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/user", requireAuth, authHandler.User)
	authGroup.POST("/logout", requireAuth, authHandler.Logout)

	chatGroup := api.Group("/chats")
	chatGroup.Use(requireAuth)
	chatGroup.POST("", chatHandler.CreateChat)
	chatGroup.GET("", chatHandler.ListChats)
	chatGroup.POST("/:id/messages", chatHandler.SendMessage)
	chatGroup.GET("/:id/messages", chatHandler.ListMessages)

	api.POST("/deploy", requireAuth, deployHandler.Deploy)

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "route not found")
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
