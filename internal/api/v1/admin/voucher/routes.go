package voucher

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	group := router.Group("/vouchers")
	group.POST("", h.Create)
	group.GET("", h.List)
	group.PATCH("/:id/active", h.SetActive)
}
