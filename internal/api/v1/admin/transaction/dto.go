package transaction

import (
	"time"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
)

type LedgerListItem struct {
	ID             uint             `json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	AccountID      uint             `json:"account_id"`
	Kind           models.EntryKind `json:"kind"`
	Amount         float64          `json:"amount"`
	BalanceBefore  float64          `json:"balance_before"`
	BalanceAfter   float64          `json:"balance_after"`
	Description    string           `json:"description"`
	IdempotencyRef string           `json:"idempotency_ref,omitempty"`
	Operator       string           `json:"operator"`
}

type LedgerListResponse struct {
	Items []LedgerListItem `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}
