package billing

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	group := router.Group("/billing")
	group.GET("/balance", h.GetBalance)
	group.GET("/rate", h.QuoteRate)
	group.POST("/charge", h.ChargeMessage)
	group.GET("/transactions", h.ListTransactions)
}
