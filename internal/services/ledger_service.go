package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
)

// LedgerFilter defines criteria for filtering ledger entries
type LedgerFilter struct {
	AccountID *uint
	UserID    *uint
	Kind      *models.EntryKind
	StartTime *time.Time
	EndTime   *time.Time
	MinAmount *float64
	MaxAmount *float64
	Page      int
	Limit     int
}

// LedgerService reads the append-only transaction log. It never writes:
// entries are only ever created by the credit service, inside the same
// transaction as the balance change they describe.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Find retrieves a paginated list of ledger entries with filtering
func (s *LedgerService) Find(filter LedgerFilter) ([]models.LedgerEntry, int64, error) {
	var entries []models.LedgerEntry
	var total int64

	query := s.db.Model(&models.LedgerEntry{})

	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.UserID != nil {
		query = query.Where("account_id IN (?)",
			s.db.Model(&models.Account{}).Select("id").Where("user_id = ?", *filter.UserID))
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at desc").Limit(filter.Limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GenerateCSV generates CSV content for a set of ledger entries
func (s *LedgerService) GenerateCSV(entries []models.LedgerEntry) ([]byte, error) {
	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{
		"ID", "Time", "Account ID", "Kind", "Amount",
		"Balance Before", "Balance After", "Description",
		"Idempotency Ref", "Operator", "Hash",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, e := range entries {
		record := []string{
			fmt.Sprintf("%d", e.ID),
			e.CreatedAt.Format(time.RFC3339Nano),
			fmt.Sprintf("%d", e.AccountID),
			string(e.Kind),
			fmt.Sprintf("%.2f", e.Amount),
			fmt.Sprintf("%.2f", e.BalanceBefore),
			fmt.Sprintf("%.2f", e.BalanceAfter),
			e.Description,
			e.IdempotencyRef,
			e.Operator,
			e.Hash,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}
