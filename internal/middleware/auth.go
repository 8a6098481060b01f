package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

// Auth authenticates requests from bearer tokens. It checks the denylist
// before signature validation so revoked tokens die even if still valid.
type Auth struct {
	users     *services.UserService
	denylist  *services.TokenDenylistService
	jwtSecret string
}

func NewAuth(users *services.UserService, denylist *services.TokenDenylistService, jwtSecret string) *Auth {
	return &Auth{users: users, denylist: denylist, jwtSecret: jwtSecret}
}

// Required rejects unauthenticated requests and stores the authenticated
// user in the context under "user".
func (m *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := m.authenticate(c)
		if !ok {
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

// AdminOnly additionally requires the admin role.
func (m *Auth) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := m.authenticate(c)
		if !ok {
			return
		}
		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Forbidden: Admins only"))
			c.Abort()
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func (m *Auth) authenticate(c *gin.Context) (models.User, bool) {
	var user models.User

	tokenString, err := utils.ExtractToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, err.Error()))
		c.Abort()
		return user, false
	}

	isDenylisted, err := m.denylist.IsDenylisted(tokenString)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to check token status"))
		c.Abort()
		return user, false
	}
	if isDenylisted {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Token has been revoked"))
		c.Abort()
		return user, false
	}

	claims, err := utils.ValidateToken(m.jwtSecret, tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid or expired token"))
		c.Abort()
		return user, false
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid user ID in token"))
		c.Abort()
		return user, false
	}

	user, err = m.users.FindByID(uint(userIDFloat))
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "User not found"))
		c.Abort()
		return user, false
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Account is disabled"))
		c.Abort()
		return user, false
	}

	return user, true
}

// CurrentUser returns the authenticated user stored by Required/AdminOnly.
func CurrentUser(c *gin.Context) models.User {
	return c.MustGet("user").(models.User)
}
