package credit

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	group := router.Group("/credit")
	group.POST("/adjust", h.Adjust)
}
