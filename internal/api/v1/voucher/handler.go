package voucher

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/middleware"
	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

type Handler struct {
	vouchers *services.VoucherService
}

func NewHandler(vouchers *services.VoucherService) *Handler {
	return &Handler{vouchers: vouchers}
}

// Redeem godoc
// @Summary Redeem a voucher code
// @Description Credit the voucher's amount to the authenticated user's balance
// @Tags vouchers
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   input  body  RedeemInput  true  "Redeem Input"
// @Success 200 {object} utils.Response{data=services.RedeemResult}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /vouchers/redeem [post]
func (h *Handler) Redeem(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input RedeemInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	result, err := h.vouchers.Redeem(user.ID, input.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrVoucherNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, services.ErrVoucherInactive),
			errors.Is(err, services.ErrVoucherExpired),
			errors.Is(err, services.ErrVoucherExhausted),
			errors.Is(err, services.ErrAlreadyRedeemed):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		case errors.Is(err, services.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to redeem voucher"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Voucher redeemed", result))
}
