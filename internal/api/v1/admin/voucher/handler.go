package voucher

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

type Handler struct {
	vouchers *services.VoucherService
}

func NewHandler(vouchers *services.VoucherService) *Handler {
	return &Handler{vouchers: vouchers}
}

// Create godoc
// @Summary Create a voucher
// @Description Create a promotional credit voucher. An empty code gets a generated one. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CreateInput true "Voucher"
// @Success 201 {object} utils.Response{data=models.Voucher}
// @Failure 400 {object} utils.Response
// @Router /admin/vouchers [post]
func (h *Handler) Create(c *gin.Context) {
	var input CreateInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	v, err := h.vouchers.CreateVoucher(input.Code, input.Amount, input.MaxUsage, input.ExpiresAt, input.SingleUsePerUser)
	if err != nil {
		if errors.Is(err, services.ErrInvalidVoucher) {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to create voucher"))
		return
	}

	c.JSON(http.StatusCreated, utils.NewSuccessResponse("Voucher created", v))
}

// List godoc
// @Summary List vouchers
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=[]models.Voucher}
// @Router /admin/vouchers [get]
func (h *Handler) List(c *gin.Context) {
	vouchers, err := h.vouchers.ListVouchers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load vouchers"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Vouchers retrieved", vouchers))
}

// SetActive godoc
// @Summary Enable or disable a voucher
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Voucher ID"
// @Param body body SetActiveInput true "Active flag"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /admin/vouchers/{id}/active [patch]
func (h *Handler) SetActive(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid voucher ID"))
		return
	}

	var input SetActiveInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	if err := h.vouchers.SetActive(uint(id), *input.IsActive); err != nil {
		if errors.Is(err, services.ErrVoucherNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to update voucher"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Voucher updated", nil))
}
