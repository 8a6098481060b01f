package user

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/middleware"
	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

type UserListItem struct {
	ID                  uint      `json:"id"`
	Username            string    `json:"username"`
	Role                string    `json:"role"`
	IsActive            bool      `json:"is_active"`
	DiscountPercent     float64   `json:"discount_percent"`
	MessageRateOverride *float64  `json:"message_rate_override,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type UserListResponse struct {
	Users []UserListItem `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// UpdateUserRequest carries the admin-editable user fields. Billing fields
// (discount, rate override) live here so support can adjust pricing per user.
type UpdateUserRequest struct {
	Username            *string  `json:"username,omitempty"`
	Password            *string  `json:"password,omitempty" binding:"omitempty,min=6"`
	Role                *string  `json:"role,omitempty" binding:"omitempty,oneof=admin user"`
	IsActive            *bool    `json:"is_active,omitempty"`
	DiscountPercent     *float64 `json:"discount_percent,omitempty" binding:"omitempty,gte=0,lte=100"`
	MessageRateOverride *float64 `json:"message_rate_override,omitempty" binding:"omitempty,gte=0"`
}

type Handler struct {
	users *services.UserService
}

func NewHandler(users *services.UserService) *Handler {
	return &Handler{users: users}
}

// List godoc
// @Summary List all users
// @Description Get a paginated list of users. Admin only.
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=UserListResponse}
// @Failure 400 {object} utils.Response
// @Router /admin/users [get]
func (h *Handler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}

	users, total, err := h.users.Find(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch users"))
		return
	}

	items := make([]UserListItem, 0, len(users))
	for _, u := range users {
		items = append(items, UserListItem{
			ID:                  u.ID,
			Username:            u.Username,
			Role:                u.Role,
			IsActive:            u.IsActive,
			DiscountPercent:     u.DiscountPercent,
			MessageRateOverride: u.MessageRateOverride,
			CreatedAt:           u.CreatedAt,
			UpdatedAt:           u.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Users retrieved successfully", UserListResponse{
		Users: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// Update godoc
// @Summary Update a user
// @Description Update user details and billing adjustments. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "User ID"
// @Param body body UpdateUserRequest true "User details to update"
// @Success 200 {object} utils.Response{data=UserListItem}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /admin/users/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid user ID"))
		return
	}

	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		updates["username"] = *req.Username
	}
	if req.Password != nil {
		updates["password"] = *req.Password
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.DiscountPercent != nil {
		updates["discount_percent"] = *req.DiscountPercent
	}
	if req.MessageRateOverride != nil {
		updates["message_rate_override"] = *req.MessageRateOverride
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "No fields to update"))
		return
	}

	operator := middleware.CurrentUser(c).Username
	u, err := h.users.Update(uint(id), updates, operator)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, services.ErrOptimisticLock):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to update user"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("User updated successfully", UserListItem{
		ID:                  u.ID,
		Username:            u.Username,
		Role:                u.Role,
		IsActive:            u.IsActive,
		DiscountPercent:     u.DiscountPercent,
		MessageRateOverride: u.MessageRateOverride,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}))
}
