package scheduler

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	group := router.Group("/scheduler")
	group.GET("/status", h.Status)
	group.POST("/run", h.Run)
}
