package services

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mahalbangetid-beep/scb-sub002/config"
	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Message charge outcome reasons. Insufficient balance and admin exemption
// are expected business results, not errors; callers branch on Reason.
const (
	ChargeReasonCharged      = "charged"
	ChargeReasonAdminExempt  = "admin_exempt"
	ChargeReasonInsufficient = "insufficient_balance"
	ChargeReasonZeroRate     = "zero_rate"
)

// ChargeOutcome describes one completed balance mutation.
type ChargeOutcome struct {
	BalanceBefore float64
	BalanceAfter  float64
	Entry         *models.LedgerEntry
}

// MessageCharge is the result of ChargeMessage.
type MessageCharge struct {
	Charged    bool    `json:"charged"`
	Reason     string  `json:"reason"`
	Rate       float64 `json:"rate"`
	NewBalance float64 `json:"new_balance"`
}

// CreditService is the only component allowed to write account balances.
// Every mutation happens in one serializable transaction together with its
// append-only ledger entry.
type CreditService struct {
	db       *gorm.DB
	rates    *RateService
	activity ActivitySink
	cfg      *config.Config
	logger   *zap.Logger
}

func NewCreditService(db *gorm.DB, rates *RateService, activity ActivitySink, cfg *config.Config, logger *zap.Logger) *CreditService {
	return &CreditService{db: db, rates: rates, activity: activity, cfg: cfg, logger: logger}
}

// Deduct removes amount from the user's balance and appends a DEBIT ledger
// entry, atomically. Fails with ErrInsufficientBalance (balance untouched)
// when the rounded result would go negative.
func (s *CreditService) Deduct(userID uint, amount float64, description, idempotencyRef, operator string) (*ChargeOutcome, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var outcome *ChargeOutcome
	err := serializableTx(s.db, func(tx *gorm.DB) error {
		account, err := s.LockAccount(tx, userID)
		if err != nil {
			return err
		}
		out, err := s.ApplyDebit(tx, account, amount, description, idempotencyRef, operator)
		if err != nil {
			return err
		}
		outcome = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Add credits amount to the user's balance with a CREDIT ledger entry.
// There is no upper bound.
func (s *CreditService) Add(userID uint, amount float64, description, idempotencyRef, operator string) (*ChargeOutcome, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var outcome *ChargeOutcome
	err := serializableTx(s.db, func(tx *gorm.DB) error {
		account, err := s.LockAccount(tx, userID)
		if err != nil {
			return err
		}
		out, err := s.ApplyCredit(tx, account, amount, description, idempotencyRef, operator)
		if err != nil {
			return err
		}
		outcome = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ChargeMessage charges the user for one outbound message. Administrative
// accounts are exempt. A user without enough funds gets a non-charged
// result, not an error; message handling decides what to tell them.
func (s *CreditService) ChargeMessage(userID uint, platform string, isGroup bool) (*MessageCharge, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if user.IsAdmin() {
		return &MessageCharge{Charged: false, Reason: ChargeReasonAdminExempt}, nil
	}

	rate := s.rates.MessageRate(&user, platform, isGroup)
	if rate <= 0 {
		balance, err := s.GetBalance(userID)
		if err != nil {
			return nil, err
		}
		return &MessageCharge{Charged: false, Reason: ChargeReasonZeroRate, NewBalance: balance}, nil
	}

	description := fmt.Sprintf("%s message", platform)
	if isGroup {
		description = fmt.Sprintf("%s group message", platform)
	}

	outcome, err := s.Deduct(userID, rate, description, "", "system")
	if errors.Is(err, ErrInsufficientBalance) {
		balance, berr := s.GetBalance(userID)
		if berr != nil {
			return nil, berr
		}
		return &MessageCharge{Charged: false, Reason: ChargeReasonInsufficient, Rate: rate, NewBalance: balance}, nil
	}
	if err != nil {
		return nil, err
	}

	threshold := s.cfg.LowBalanceThreshold
	if outcome.BalanceBefore >= threshold && outcome.BalanceAfter < threshold {
		s.notifyLowBalance(user.ID, outcome.BalanceAfter)
	}

	return &MessageCharge{Charged: true, Reason: ChargeReasonCharged, Rate: rate, NewBalance: outcome.BalanceAfter}, nil
}

// GetBalance returns the user's current balance.
func (s *CreditService) GetBalance(userID uint) (float64, error) {
	var account models.Account
	if err := s.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return account.Balance, nil
}

// HasSufficientBalance reports whether a deduction of amount would succeed.
func (s *CreditService) HasSufficientBalance(userID uint, amount float64) (bool, error) {
	balance, err := s.GetBalance(userID)
	if err != nil {
		return false, err
	}
	return utils.Round2(balance-amount) >= 0, nil
}

// LockAccount loads the user's account inside tx, row-locked on databases
// that support it. Used by collaborators (vouchers, subscriptions) that need
// the account inside their own transaction boundary.
func (s *CreditService) LockAccount(tx *gorm.DB, userID uint) (*models.Account, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var account models.Account
	if err := q.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ApplyDebit writes the reduced balance and its DEBIT ledger entry inside
// the caller's transaction. The caller must have loaded account via
// LockAccount in the same transaction.
func (s *CreditService) ApplyDebit(tx *gorm.DB, account *models.Account, amount float64, description, idempotencyRef, operator string) (*ChargeOutcome, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	amount = utils.Round2(amount)
	newBalance := utils.Round2(account.Balance - amount)
	if newBalance < 0 {
		return nil, ErrInsufficientBalance
	}
	return s.applyMutation(tx, account, models.EntryKindDebit, amount, newBalance, description, idempotencyRef, operator)
}

// ApplyCredit writes the increased balance and its CREDIT ledger entry
// inside the caller's transaction.
func (s *CreditService) ApplyCredit(tx *gorm.DB, account *models.Account, amount float64, description, idempotencyRef, operator string) (*ChargeOutcome, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	amount = utils.Round2(amount)
	newBalance := utils.Round2(account.Balance + amount)
	return s.applyMutation(tx, account, models.EntryKindCredit, amount, newBalance, description, idempotencyRef, operator)
}

func (s *CreditService) applyMutation(tx *gorm.DB, account *models.Account, kind models.EntryKind, amount, newBalance float64, description, idempotencyRef, operator string) (*ChargeOutcome, error) {
	balanceBefore := account.Balance

	if err := tx.Model(&models.Account{}).Where("id = ?", account.ID).Update("balance", newBalance).Error; err != nil {
		return nil, err
	}
	account.Balance = newBalance

	entry := &models.LedgerEntry{
		CreatedAt:      time.Now(),
		AccountID:      account.ID,
		Kind:           kind,
		Amount:         amount,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   newBalance,
		Description:    description,
		IdempotencyRef: idempotencyRef,
		Operator:       operator,
	}
	entry.Hash = entry.GenerateHash(s.cfg.LedgerSecret)

	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}

	return &ChargeOutcome{BalanceBefore: balanceBefore, BalanceAfter: newBalance, Entry: entry}, nil
}

// notifyLowBalance schedules a best-effort low balance notice. Failures are
// logged and swallowed; the charge that triggered the notice has already
// committed and must not be affected.
func (s *CreditService) notifyLowBalance(userID uint, balance float64) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Warn("low balance notification panicked", zap.Any("panic", r), zap.Uint("user_id", userID))
			}
		}()
		detail := fmt.Sprintf("balance dropped to %.2f (threshold %.2f)", balance, s.cfg.LowBalanceThreshold)
		if err := s.activity.Record(userID, "low_balance", detail); err != nil {
			s.logger.Warn("low balance notification failed", zap.Error(err), zap.Uint("user_id", userID))
		}
	}()
}
