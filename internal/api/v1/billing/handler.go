package billing

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
	credit *services.CreditService
	rates  *services.RateService
	ledger *services.LedgerService
}

func NewHandler(credit *services.CreditService, rates *services.RateService, ledger *services.LedgerService) *Handler {
	return &Handler{credit: credit, rates: rates, ledger: ledger}
}

// GetBalance godoc
// @Summary Get current balance
// @Description Get the authenticated user's credit balance
// @Tags billing
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=BalanceResponse}
// @Failure 404 {object} utils.Response
// @Router /billing/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	user := middleware.CurrentUser(c)

	balance, err := h.credit.GetBalance(user.ID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load balance"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Balance retrieved", BalanceResponse{Balance: balance}))
}

// QuoteRate godoc
// @Summary Quote the per-message rate
// @Description Resolve the price of one message for the authenticated user
// @Tags billing
// @Produce  json
// @Security ApiKeyAuth
// @Param   platform  query  string  false  "Messaging platform"  Enums(whatsapp, telegram)
// @Param   is_group  query  bool    false  "Group message"
// @Success 200 {object} utils.Response{data=RateResponse}
// @Router /billing/rate [get]
func (h *Handler) QuoteRate(c *gin.Context) {
	user := middleware.CurrentUser(c)

	platform := c.DefaultQuery("platform", services.PlatformWhatsapp)
	isGroup, _ := strconv.ParseBool(c.DefaultQuery("is_group", "false"))

	rate := h.rates.MessageRate(&user, platform, isGroup)

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Rate resolved", RateResponse{
		Platform: platform,
		IsGroup:  isGroup,
		Rate:     rate,
	}))
}

// ChargeMessage godoc
// @Summary Charge for one outbound message
// @Description Deduct the resolved message rate from the authenticated user. Insufficient balance is reported in the result, not as an error.
// @Tags billing
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   input  body  ChargeMessageInput  true  "Charge Input"
// @Success 200 {object} utils.Response{data=services.MessageCharge}
// @Failure 400 {object} utils.Response
// @Router /billing/charge [post]
func (h *Handler) ChargeMessage(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input ChargeMessageInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	result, err := h.credit.ChargeMessage(user.ID, input.Platform, input.IsGroup)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) || errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to charge message"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Message charge processed", result))
}

// ListTransactions godoc
// @Summary List own ledger entries
// @Description Paginated ledger history of the authenticated user
// @Tags billing
// @Produce  json
// @Security ApiKeyAuth
// @Param   page   query  int  false  "Page number"  default(1)
// @Param   limit  query  int  false  "Page size"    default(20)
// @Success 200 {object} utils.Response
// @Router /billing/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	user := middleware.CurrentUser(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, total, err := h.ledger.Find(services.LedgerFilter{
		UserID: &user.ID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load transactions"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transactions retrieved", gin.H{
		"items": entries,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}
