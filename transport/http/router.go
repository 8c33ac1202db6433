package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/chainchat/chainchat/service"
	"github.com/chainchat/chainchat/transport/ws"
)

// SetupRouter sets up the Gin router.
func SetupRouter(auth *service.AuthService, users *service.UserService, chat *service.ChatService, wsHandler *ws.Handler) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	handlers := NewHandlers(auth, users, chat)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/request", handlers.AuthRequest)
		authGroup.POST("/verify", handlers.AuthVerify)
	}

	usersGroup := router.Group("/users")
	usersGroup.Use(AuthMiddleware(auth))
	{
		usersGroup.GET("/me", handlers.Me)
		usersGroup.PUT("/me", handlers.UpdateMe)
		usersGroup.GET("/search", handlers.SearchUsers)
	}

	messagesGroup := router.Group("/messages")
	messagesGroup.Use(AuthMiddleware(auth))
	{
		messagesGroup.POST("", handlers.SendMessage)
		messagesGroup.GET("/:user_id", handlers.GetMessages)
	}

	// The websocket handler authenticates itself: browser clients cannot
	// set an Authorization header on the upgrade request.
	router.GET("/ws/:user_id", wsHandler.Serve)

	return router
}
