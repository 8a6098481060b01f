package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/middleware"
)

func RegisterRoutes(router *gin.RouterGroup, h *Handler, auth *middleware.Auth) {
	group := router.Group("/auth")
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/logout", auth.Required(), h.Logout)
}
