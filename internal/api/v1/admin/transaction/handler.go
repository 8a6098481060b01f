package transaction

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

type Handler struct {
	ledger *services.LedgerService
}

func NewHandler(ledger *services.LedgerService) *Handler {
	return &Handler{ledger: ledger}
}

// List godoc
// @Summary List ledger entries
// @Description Get a paginated list of ledger entries with filtering. Admin only.
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param user_id query int false "Filter by user ID"
// @Param kind query string false "Filter by entry kind (CREDIT or DEBIT)"
// @Param start_time query string false "Filter by start time (RFC3339)"
// @Param end_time query string false "Filter by end time (RFC3339)"
// @Param min_amount query number false "Filter by minimum amount"
// @Param max_amount query number false "Filter by maximum amount"
// @Success 200 {object} utils.Response{data=LedgerListResponse}
// @Failure 400 {object} utils.Response
// @Router /admin/transactions [get]
func (h *Handler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	entries, total, err := h.ledger.Find(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch transactions"))
		return
	}

	items := make([]LedgerListItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, LedgerListItem{
			ID:             e.ID,
			CreatedAt:      e.CreatedAt,
			AccountID:      e.AccountID,
			Kind:           e.Kind,
			Amount:         e.Amount,
			BalanceBefore:  e.BalanceBefore,
			BalanceAfter:   e.BalanceAfter,
			Description:    e.Description,
			IdempotencyRef: e.IdempotencyRef,
			Operator:       e.Operator,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transactions retrieved successfully", LedgerListResponse{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}))
}

// Export godoc
// @Summary Export ledger entries as CSV
// @Description Download filtered ledger entries as a CSV file. Admin only.
// @Tags admin
// @Produce text/csv
// @Security ApiKeyAuth
// @Param user_id query int false "Filter by user ID"
// @Param kind query string false "Filter by entry kind (CREDIT or DEBIT)"
// @Param start_time query string false "Filter by start time (RFC3339)"
// @Param end_time query string false "Filter by end time (RFC3339)"
// @Success 200 {string} string "CSV content"
// @Failure 400 {object} utils.Response
// @Router /admin/transactions/export [get]
func (h *Handler) Export(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	// Export ignores pagination and streams the whole filtered range.
	filter.Page = 1
	filter.Limit = 100000

	entries, _, err := h.ledger.Find(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch transactions"))
		return
	}

	data, err := h.ledger.GenerateCSV(entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to generate CSV"))
		return
	}

	filename := fmt.Sprintf("ledger_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

func (h *Handler) parseFilter(c *gin.Context) (services.LedgerFilter, bool) {
	filter := services.LedgerFilter{Page: 1, Limit: 20}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return filter, false
	}
	filter.Page = page

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return filter, false
	}
	filter.Limit = limit

	if userIDStr, exists := c.GetQuery("user_id"); exists {
		userID, err := strconv.Atoi(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid user_id"))
			return filter, false
		}
		uid := uint(userID)
		filter.UserID = &uid
	}

	if kindStr, exists := c.GetQuery("kind"); exists {
		kind := models.EntryKind(kindStr)
		if kind != models.EntryKindCredit && kind != models.EntryKindDebit {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid kind"))
			return filter, false
		}
		filter.Kind = &kind
	}

	if startTimeStr, exists := c.GetQuery("start_time"); exists {
		startTime, err := time.Parse(time.RFC3339, startTimeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid start_time format"))
			return filter, false
		}
		filter.StartTime = &startTime
	}

	if endTimeStr, exists := c.GetQuery("end_time"); exists {
		endTime, err := time.Parse(time.RFC3339, endTimeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid end_time format"))
			return filter, false
		}
		filter.EndTime = &endTime
	}

	if minAmountStr, exists := c.GetQuery("min_amount"); exists {
		minAmount, err := strconv.ParseFloat(minAmountStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid min_amount"))
			return filter, false
		}
		filter.MinAmount = &minAmount
	}

	if maxAmountStr, exists := c.GetQuery("max_amount"); exists {
		maxAmount, err := strconv.ParseFloat(maxAmountStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid max_amount"))
			return filter, false
		}
		filter.MaxAmount = &maxAmount
	}

	return filter, true
}
