package voucher

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	group := router.Group("/vouchers")
	group.POST("/redeem", h.Redeem)
}
