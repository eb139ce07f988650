package api

import (
	"Milestone/internal/api/middleware"
	"Milestone/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		userGroup := apiGroup.Group("/user")
		{
			// 无需登录即可访问的接口
			userGroup.POST("/login", group.UserHandler.Login)
			userGroup.POST("/register", group.UserHandler.Register)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
				authGroup.GET("/info", group.UserHandler.GetUserInfo)
				authGroup.PUT("/pushy-token", group.UserHandler.UpdatePushyToken)
			}
		}

		chatGroup := apiGroup.Group("/chats")
		{
			// Websocket 升级入口，鉴权由首个 enterChat 事件完成
			chatGroup.GET("/ws", group.WSHandler.Connect)

			authGroup := chatGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/rooms", group.ChatHandler.GetRoomList)
				authGroup.GET("/:room_id/messages", group.ChatHandler.GetChatHistory)
				authGroup.GET("/:room_id/pages", group.ChatHandler.GetChatPageCount)
				authGroup.DELETE("/:room_id", group.ChatHandler.DeleteRoom)
			}
		}
	}

	return r
}
