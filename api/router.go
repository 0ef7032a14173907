package api

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	router.GET("/callback", h.OAuthCallbackHandler)
	router.POST("/save_token", h.SaveTokenHandler)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", h.HealthCheckHandler)

		apiGroup.POST("/servers/:serverID/link", h.LinkAccountHandler)
		apiGroup.DELETE("/servers/:serverID", h.UnlinkServerHandler)
		apiGroup.GET("/servers/:serverID/boards", h.ListBoardsHandler)
		apiGroup.PUT("/servers/:serverID/board", h.LinkBoardHandler)
		apiGroup.GET("/servers/:serverID/lists", h.ListListsHandler)
		apiGroup.GET("/servers/:serverID/labels", h.ListLabelsHandler)
		apiGroup.POST("/servers/:serverID/sync", h.SyncHandler)

		apiGroup.PUT("/forums/:forumID", h.LinkListHandler)
		apiGroup.DELETE("/forums/:forumID", h.UnlinkForumHandler)
		apiGroup.GET("/forums/:forumID/tags", h.ListTagsHandler)
		apiGroup.GET("/forums/:forumID/threads", h.ListThreadsHandler)
		apiGroup.GET("/forums/:forumID/cards", h.ListCardsHandler)

		apiGroup.PUT("/tags/:tagID", h.LinkTagHandler)
	}

	return router
}
