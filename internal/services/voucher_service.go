package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
)

var (
	ErrVoucherNotFound  = errors.New("voucher not found")
	ErrVoucherInactive  = errors.New("voucher is not active")
	ErrVoucherExpired   = errors.New("voucher has expired")
	ErrVoucherExhausted = errors.New("voucher usage limit reached")
	ErrAlreadyRedeemed  = errors.New("voucher already redeemed by this user")
	ErrInvalidVoucher   = errors.New("voucher amount must be positive")
)

// RedeemResult is returned on a successful redemption.
type RedeemResult struct {
	VoucherID  uint    `json:"voucher_id"`
	Code       string  `json:"code"`
	Amount     float64 `json:"amount"`
	NewBalance float64 `json:"new_balance"`
}

type VoucherService struct {
	db     *gorm.DB
	credit *CreditService
	logger *zap.Logger
}

func NewVoucherService(db *gorm.DB, credit *CreditService, logger *zap.Logger) *VoucherService {
	return &VoucherService{db: db, credit: credit, logger: logger}
}

// Redeem grants the voucher's amount to the user. The validity checks,
// per-user dedup, usage count bump and credit grant run in one serializable
// transaction so two concurrent redeemers cannot both take the last usage
// slot.
func (s *VoucherService) Redeem(userID uint, code string) (*RedeemResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrVoucherNotFound
	}

	var result *RedeemResult
	err := serializableTx(s.db, func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var voucher models.Voucher
		if err := q.Where("code = ?", code).First(&voucher).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVoucherNotFound
			}
			return err
		}

		if !voucher.IsActive {
			return ErrVoucherInactive
		}
		if voucher.ExpiresAt != nil && time.Now().After(*voucher.ExpiresAt) {
			return ErrVoucherExpired
		}
		if voucher.MaxUsage != nil && voucher.UsageCount >= *voucher.MaxUsage {
			return ErrVoucherExhausted
		}

		account, err := s.credit.LockAccount(tx, userID)
		if err != nil {
			return err
		}

		ref := voucher.RedemptionRef()
		if voucher.SingleUsePerUser {
			var count int64
			if err := tx.Model(&models.LedgerEntry{}).
				Where("account_id = ? AND idempotency_ref = ?", account.ID, ref).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrAlreadyRedeemed
			}
		}

		// Conditional bump: if a concurrent redemption advanced the count
		// between our read and this write, zero rows are affected and the
		// transaction is retried against the fresh count.
		res := tx.Model(&models.Voucher{}).
			Where("id = ? AND usage_count = ?", voucher.ID, voucher.UsageCount).
			Update("usage_count", voucher.UsageCount+1)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTxContended
		}

		outcome, err := s.credit.ApplyCredit(tx, account, voucher.Amount,
			fmt.Sprintf("Voucher redemption: %s", voucher.Code), ref, "system")
		if err != nil {
			return err
		}

		result = &RedeemResult{
			VoucherID:  voucher.ID,
			Code:       voucher.Code,
			Amount:     voucher.Amount,
			NewBalance: outcome.BalanceAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("voucher redeemed",
		zap.Uint("user_id", userID),
		zap.String("code", result.Code),
		zap.Float64("amount", result.Amount),
	)
	return result, nil
}

// CreateVoucher creates a promotional voucher. An empty code gets a
// generated one.
func (s *VoucherService) CreateVoucher(code string, amount float64, maxUsage *int, expiresAt *time.Time, singleUsePerUser bool) (*models.Voucher, error) {
	if amount <= 0 {
		return nil, ErrInvalidVoucher
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = strings.ToUpper(uuid.New().String()[:8])
	}

	voucher := &models.Voucher{
		Code:             code,
		Amount:           amount,
		MaxUsage:         maxUsage,
		ExpiresAt:        expiresAt,
		SingleUsePerUser: singleUsePerUser,
		IsActive:         true,
	}
	if err := s.db.Create(voucher).Error; err != nil {
		return nil, err
	}
	return voucher, nil
}

// ListVouchers returns all vouchers, newest first.
func (s *VoucherService) ListVouchers() ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := s.db.Order("created_at desc").Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// SetActive enables or disables a voucher.
func (s *VoucherService) SetActive(voucherID uint, active bool) error {
	res := s.db.Model(&models.Voucher{}).Where("id = ?", voucherID).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVoucherNotFound
	}
	return nil
}
