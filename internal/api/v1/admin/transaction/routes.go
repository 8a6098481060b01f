package transaction

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	group := router.Group("/transactions")
	group.GET("", h.List)
	group.GET("/export", h.Export)
}
