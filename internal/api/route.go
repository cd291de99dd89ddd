package api

import (
	"Reclaim/internal/api/middleware"
	"Reclaim/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
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
			userGroup.POST("/register", group.UserHandler.Register)
			userGroup.POST("/login", group.UserHandler.Login)
			userGroup.GET("/:id/profile", group.UserHandler.GetProfile)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
				authGroup.GET("/me", group.UserHandler.Me)
				authGroup.PUT("/me", group.UserHandler.UpdateProfile)
				authGroup.PUT("/password", group.UserHandler.UpdatePassword)
				authGroup.POST("/avatar", group.UserHandler.UploadAvatar)
			}
		}

		communityGroup := apiGroup.Group("/community")
		{
			communityGroup.GET("/leaderboard", group.UserHandler.GetLeaderboard)
			communityGroup.GET("/stats", group.UserHandler.GetCommunityStats)
		}

		itemGroup := apiGroup.Group("/items")
		{
			authOptGroup := itemGroup.Group("")
			authOptGroup.Use(middleware.AuthOptionalMiddleware())
			{
				authOptGroup.GET("", group.ItemHandler.ListItems)
				authOptGroup.GET("/search", group.ItemHandler.SearchItems)
				authOptGroup.GET("/nearby", group.ItemHandler.FindNearby)
				authOptGroup.GET("/:id", group.ItemHandler.GetItem)
				authOptGroup.GET("/:id/matches", group.ItemHandler.GetMatches)
			}

			authGroup := itemGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("", group.ItemHandler.CreateItem)
				authGroup.PUT("/:id", group.ItemHandler.UpdateItem)
				authGroup.DELETE("/:id", group.ItemHandler.DeleteItem)
				authGroup.POST("/:id/resolve", group.ItemHandler.ResolveItem)
				authGroup.POST("/:id/matches/:matched_id", group.ItemHandler.RecordMatch)
			}
		}

		chatGroup := apiGroup.Group("/chats")
		{
			chatGroup.GET("/ws", group.WSHandler.Connect)

			authGroup := chatGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("", group.ChatHandler.StartChat)
				authGroup.GET("", group.ChatHandler.GetConversations)
				authGroup.GET("/unread", group.ChatHandler.UnreadTotal)
				authGroup.POST("/:id/messages", group.ChatHandler.SendMessage)
				authGroup.GET("/:id/messages", group.ChatHandler.ListMessages)
				authGroup.POST("/:id/read", group.ChatHandler.MarkRead)
				authGroup.DELETE("/:id", group.ChatHandler.Archive)
			}
		}
	}

	return r
}
