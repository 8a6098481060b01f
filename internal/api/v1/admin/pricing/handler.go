package pricing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

type Handler struct {
	rates *services.RateService
}

func NewHandler(rates *services.RateService) *Handler {
	return &Handler{rates: rates}
}

// Get godoc
// @Summary Get pricing configuration
// @Description Current message pricing keys and values. Admin only.
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response
// @Router /admin/pricing [get]
func (h *Handler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Pricing retrieved", h.rates.Pricing()))
}

// Set godoc
// @Summary Set one pricing key
// @Description Upsert a pricing setting. The rate cache is invalidated immediately so the new price applies to the next message. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body SetPricingInput true "Pricing key and value"
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Router /admin/pricing [put]
func (h *Handler) Set(c *gin.Context) {
	var input SetPricingInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	if err := h.rates.SetPricing(input.Key, input.Value); err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to update pricing"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Pricing updated", gin.H{
		"key":   input.Key,
		"value": input.Value,
	}))
}
