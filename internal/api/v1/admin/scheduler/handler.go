package scheduler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

type Handler struct {
	scheduler *services.RenewalScheduler
}

func NewHandler(scheduler *services.RenewalScheduler) *Handler {
	return &Handler{scheduler: scheduler}
}

// Status godoc
// @Summary Renewal scheduler status
// @Description Whether a pass is running and the result of the last one. Admin only.
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=services.SchedulerStatus}
// @Router /admin/scheduler/status [get]
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Scheduler status", h.scheduler.Status()))
}

// Run godoc
// @Summary Trigger a renewal pass
// @Description Run one renewal pass immediately. Returns 409 if a pass is already in progress. Admin only.
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=services.PassResult}
// @Failure 409 {object} utils.Response
// @Router /admin/scheduler/run [post]
func (h *Handler) Run(c *gin.Context) {
	result, err := h.scheduler.RunPass()
	if err != nil {
		if errors.Is(err, services.ErrPassInProgress) {
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Renewal pass failed"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Renewal pass finished", result))
}
