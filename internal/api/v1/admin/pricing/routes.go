package pricing

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	group := router.Group("/pricing")
	group.GET("", h.Get)
	group.PUT("", h.Set)
}
