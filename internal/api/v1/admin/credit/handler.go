package credit

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/middleware"
	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

type Handler struct {
	credit *services.CreditService
}

func NewHandler(credit *services.CreditService) *Handler {
	return &Handler{credit: credit}
}

// Adjust godoc
// @Summary Adjust a user's balance
// @Description Manually add or deduct credit with a mandatory description. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body AdjustInput true "Adjustment"
// @Success 200 {object} utils.Response{data=AdjustResponse}
// @Failure 400 {object} utils.Response
// @Failure 402 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /admin/credit/adjust [post]
func (h *Handler) Adjust(c *gin.Context) {
	operator := middleware.CurrentUser(c).Username

	var input AdjustInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	var outcome *services.ChargeOutcome
	var err error
	if input.Kind == "add" {
		outcome, err = h.credit.Add(input.UserID, input.Amount, input.Description, "", operator)
	} else {
		outcome, err = h.credit.Deduct(input.UserID, input.Amount, input.Description, "", operator)
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, services.ErrInsufficientBalance):
			c.JSON(http.StatusPaymentRequired, utils.NewErrorResponse(http.StatusPaymentRequired, err.Error()))
		case errors.Is(err, services.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to adjust balance"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Balance adjusted", AdjustResponse{
		UserID:        input.UserID,
		BalanceBefore: outcome.BalanceBefore,
		BalanceAfter:  outcome.BalanceAfter,
	}))
}
