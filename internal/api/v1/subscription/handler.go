package subscription

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/middleware"
	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

type Handler struct {
	subs *services.SubscriptionService
}

func NewHandler(subs *services.SubscriptionService) *Handler {
	return &Handler{subs: subs}
}

// Create godoc
// @Summary Create a subscription
// @Description Start monthly billing for a provisioned resource
// @Tags subscriptions
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   input  body  CreateInput  true  "Create Input"
// @Success 201 {object} utils.Response{data=models.Subscription}
// @Failure 400 {object} utils.Response
// @Router /subscriptions [post]
func (h *Handler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input CreateInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	sub, err := h.subs.Create(user.ID, input.ResourceType, input.ResourceID, input.MonthlyFee, input.IsFreeFirst)
	if err != nil {
		if errors.Is(err, services.ErrUnknownResourceType) || errors.Is(err, services.ErrInvalidFee) {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to create subscription"))
		return
	}

	c.JSON(http.StatusCreated, utils.NewSuccessResponse("Subscription created", sub))
}

// List godoc
// @Summary List own subscriptions
// @Tags subscriptions
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=[]models.Subscription}
// @Router /subscriptions [get]
func (h *Handler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	subs, err := h.subs.ListByUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load subscriptions"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Subscriptions retrieved", subs))
}

// Get godoc
// @Summary Get one subscription
// @Tags subscriptions
// @Produce  json
// @Security ApiKeyAuth
// @Param   id  path  int  true  "Subscription ID"
// @Success 200 {object} utils.Response{data=models.Subscription}
// @Failure 404 {object} utils.Response
// @Router /subscriptions/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	sub, err := h.subs.GetByID(id, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load subscription"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Subscription retrieved", sub))
}

// Resume godoc
// @Summary Resume a paused subscription
// @Description Reactivate a paused subscription by billing it immediately
// @Tags subscriptions
// @Produce  json
// @Security ApiKeyAuth
// @Param   id  path  int  true  "Subscription ID"
// @Success 200 {object} utils.Response{data=services.RenewalResult}
// @Failure 402 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /subscriptions/{id}/resume [post]
func (h *Handler) Resume(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.subs.Resume(id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSubscriptionNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, services.ErrNotPaused):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		case errors.Is(err, services.ErrInsufficientBalance):
			c.JSON(http.StatusPaymentRequired, utils.NewErrorResponse(http.StatusPaymentRequired, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to resume subscription"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Subscription resumed", result))
}

// Cancel godoc
// @Summary Cancel a subscription
// @Description Move the subscription to its terminal CANCELLED state
// @Tags subscriptions
// @Produce  json
// @Security ApiKeyAuth
// @Param   id  path  int  true  "Subscription ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /subscriptions/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.subs.Cancel(id, user.ID); err != nil {
		switch {
		case errors.Is(err, services.ErrSubscriptionNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, services.ErrAlreadyCancelled):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to cancel subscription"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Subscription cancelled", nil))
}

func (h *Handler) parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid subscription ID"))
		return 0, false
	}
	return uint(id), true
}
