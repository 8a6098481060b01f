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
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSubscriptionInactive = errors.New("subscription is not active")
	ErrNotPaused            = errors.New("subscription is not paused")
	ErrAlreadyCancelled     = errors.New("subscription is already cancelled")
	ErrUnknownResourceType  = errors.New("unknown resource type")
	ErrInvalidFee           = errors.New("monthly fee must not be negative")
)

// RenewalOutcome classifies the result of one renewal attempt. Insufficient
// balance and pausing are expected business outcomes, not errors.
type RenewalOutcome string

const (
	RenewalCharged      RenewalOutcome = "charged"
	RenewalFreeFirst    RenewalOutcome = "free_first"
	RenewalInsufficient RenewalOutcome = "insufficient_balance"
	RenewalPaused       RenewalOutcome = "paused"
	RenewalNotDue       RenewalOutcome = "not_due"
)

// RenewalResult reports what one Renew call did.
type RenewalResult struct {
	SubscriptionID  uint           `json:"subscription_id"`
	Outcome         RenewalOutcome `json:"outcome"`
	Charged         float64        `json:"charged"`
	NewBalance      float64        `json:"new_balance"`
	FailedAttempts  int            `json:"failed_attempts"`
	NextBillingDate time.Time      `json:"next_billing_date"`
}

// SubscriptionService owns the subscription lifecycle state machine:
// ACTIVE -> (grace exceeded) PAUSED -> (resume) ACTIVE, with CANCELLED as
// the terminal state reachable from both.
type SubscriptionService struct {
	db        *gorm.DB
	credit    *CreditService
	resources ResourceManager
	activity  ActivitySink
	cfg       *config.Config
	logger    *zap.Logger
}

func NewSubscriptionService(db *gorm.DB, credit *CreditService, resources ResourceManager, activity ActivitySink, cfg *config.Config, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{db: db, credit: credit, resources: resources, activity: activity, cfg: cfg, logger: logger}
}

// Create registers a monthly-billed subscription for a provisioned resource.
// The first billing date is one clamped calendar month out.
func (s *SubscriptionService) Create(userID uint, resourceType, resourceID string, monthlyFee float64, isFreeFirst bool) (*models.Subscription, error) {
	if !models.IsValidResourceType(resourceType) {
		return nil, ErrUnknownResourceType
	}
	if monthlyFee < 0 {
		return nil, ErrInvalidFee
	}

	now := time.Now()
	sub := &models.Subscription{
		UserID:          userID,
		ResourceType:    resourceType,
		ResourceID:      resourceID,
		MonthlyFee:      monthlyFee,
		Status:          models.SubscriptionActive,
		StartDate:       now,
		NextBillingDate: utils.AddMonthsClamped(now, 1),
		GracePeriodDays: s.cfg.DefaultGraceDays,
		IsFreeFirst:     isFreeFirst,
	}
	if err := s.db.Create(sub).Error; err != nil {
		return nil, err
	}

	s.logger.Info("subscription created",
		zap.Uint("subscription_id", sub.ID),
		zap.Uint("user_id", userID),
		zap.String("resource_type", resourceType),
		zap.String("resource_id", resourceID),
		zap.Float64("monthly_fee", monthlyFee),
	)
	return sub, nil
}

// Renew processes one due renewal. The charge, the billing date advance and
// the attempt bookkeeping share a single transaction: there is no state in
// which the account was charged but the renewal not recorded, or the other
// way round. NextBillingDate only moves forward, and only on success.
// Dueness is re-checked under the row lock, so a renewal that already
// advanced the date makes any overlapping call a RenewalNotDue no-op.
func (s *SubscriptionService) Renew(subscriptionID uint) (*RenewalResult, error) {
	var result *RenewalResult
	var pausedSub *models.Subscription

	err := serializableTx(s.db, func(tx *gorm.DB) error {
		pausedSub = nil
		sub, err := s.lockSubscription(tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != models.SubscriptionActive {
			return ErrSubscriptionInactive
		}

		now := time.Now()

		if sub.NextBillingDate.After(now) {
			result = &RenewalResult{
				SubscriptionID:  sub.ID,
				Outcome:         RenewalNotDue,
				FailedAttempts:  sub.FailedAttempts,
				NextBillingDate: sub.NextBillingDate,
			}
			return nil
		}

		if sub.IsFreeFirst {
			// The free month is consumed by the first due renewal, not at
			// creation time: the flag clears and the date advances here.
			sub.IsFreeFirst = false
			sub.NextBillingDate = utils.AddMonthsClamped(sub.NextBillingDate, 1)
			sub.FailedAttempts = 0
			sub.LastBilledAt = &now
			sub.LastFailureReason = ""
			if err := tx.Save(sub).Error; err != nil {
				return err
			}
			result = &RenewalResult{
				SubscriptionID:  sub.ID,
				Outcome:         RenewalFreeFirst,
				NextBillingDate: sub.NextBillingDate,
			}
			return nil
		}

		account, err := s.credit.LockAccount(tx, sub.UserID)
		if err != nil {
			return err
		}

		if utils.Round2(account.Balance-sub.MonthlyFee) < 0 {
			sub.FailedAttempts++
			sub.LastFailureReason = fmt.Sprintf("insufficient balance: %.2f < %.2f", account.Balance, sub.MonthlyFee)
			outcome := RenewalInsufficient
			if sub.FailedAttempts >= sub.GracePeriodDays {
				sub.Status = models.SubscriptionPaused
				sub.PausedAt = &now
				outcome = RenewalPaused
				pausedCopy := *sub
				pausedSub = &pausedCopy
			}
			if err := tx.Save(sub).Error; err != nil {
				return err
			}
			result = &RenewalResult{
				SubscriptionID:  sub.ID,
				Outcome:         outcome,
				NewBalance:      account.Balance,
				FailedAttempts:  sub.FailedAttempts,
				NextBillingDate: sub.NextBillingDate,
			}
			return nil
		}

		newBalance := account.Balance
		if sub.MonthlyFee > 0 {
			ref := fmt.Sprintf("SUB_%d_%s", sub.ID, sub.NextBillingDate.Format("2006-01"))
			description := fmt.Sprintf("Monthly renewal: %s %s", sub.ResourceType, sub.ResourceID)
			out, err := s.credit.ApplyDebit(tx, account, sub.MonthlyFee, description, ref, "system")
			if err != nil {
				return err
			}
			newBalance = out.BalanceAfter
		}

		sub.NextBillingDate = utils.AddMonthsClamped(sub.NextBillingDate, 1)
		sub.FailedAttempts = 0
		sub.LastBilledAt = &now
		sub.LastFailureReason = ""
		if err := tx.Save(sub).Error; err != nil {
			return err
		}

		result = &RenewalResult{
			SubscriptionID:  sub.ID,
			Outcome:         RenewalCharged,
			Charged:         sub.MonthlyFee,
			NewBalance:      newBalance,
			FailedAttempts:  0,
			NextBillingDate: sub.NextBillingDate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if pausedSub != nil {
		s.pauseResource(pausedSub)
	}
	return result, nil
}

// Resume reactivates a paused subscription by billing it immediately. The
// balance pre-check turns a doomed attempt into a clean
// ErrInsufficientBalance before anything is written.
func (s *SubscriptionService) Resume(subscriptionID, userID uint) (*RenewalResult, error) {
	var result *RenewalResult
	var resumedSub *models.Subscription

	err := serializableTx(s.db, func(tx *gorm.DB) error {
		resumedSub = nil
		sub, err := s.lockSubscription(tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.UserID != userID {
			return ErrSubscriptionNotFound
		}
		if sub.Status != models.SubscriptionPaused {
			return ErrNotPaused
		}

		account, err := s.credit.LockAccount(tx, sub.UserID)
		if err != nil {
			return err
		}
		if utils.Round2(account.Balance-sub.MonthlyFee) < 0 {
			return ErrInsufficientBalance
		}

		now := time.Now()
		newBalance := account.Balance
		if sub.MonthlyFee > 0 {
			ref := fmt.Sprintf("SUB_%d_resume_%s", sub.ID, now.Format("2006-01-02"))
			description := fmt.Sprintf("Subscription resumed: %s %s", sub.ResourceType, sub.ResourceID)
			out, err := s.credit.ApplyDebit(tx, account, sub.MonthlyFee, description, ref, "system")
			if err != nil {
				return err
			}
			newBalance = out.BalanceAfter
		}

		sub.Status = models.SubscriptionActive
		sub.PausedAt = nil
		sub.FailedAttempts = 0
		sub.LastBilledAt = &now
		sub.LastFailureReason = ""
		// The paused billing anchor is stale; the resumed period starts now.
		sub.NextBillingDate = utils.AddMonthsClamped(now, 1)
		if err := tx.Save(sub).Error; err != nil {
			return err
		}

		resumedCopy := *sub
		resumedSub = &resumedCopy
		result = &RenewalResult{
			SubscriptionID:  sub.ID,
			Outcome:         RenewalCharged,
			Charged:         sub.MonthlyFee,
			NewBalance:      newBalance,
			NextBillingDate: sub.NextBillingDate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.resumeResource(resumedSub)
	return result, nil
}

// Cancel moves an ACTIVE or PAUSED subscription to CANCELLED. Terminal: the
// record is kept for audit but never transitions again. Releasing the
// underlying resource is the caller's responsibility.
func (s *SubscriptionService) Cancel(subscriptionID, userID uint) error {
	return serializableTx(s.db, func(tx *gorm.DB) error {
		sub, err := s.lockSubscription(tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.UserID != userID {
			return ErrSubscriptionNotFound
		}
		if sub.Status == models.SubscriptionCancelled {
			return ErrAlreadyCancelled
		}
		sub.Status = models.SubscriptionCancelled
		return tx.Save(sub).Error
	})
}

// GetByID returns one subscription owned by the user.
func (s *SubscriptionService) GetByID(subscriptionID, userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Where("id = ? AND user_id = ?", subscriptionID, userID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// ListByUser returns all subscriptions of a user, newest first.
func (s *SubscriptionService) ListByUser(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := s.db.Where("user_id = ?", userID).Order("created_at desc").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// DueSubscriptions returns the ACTIVE subscriptions whose billing date has
// arrived, oldest due first.
func (s *SubscriptionService) DueSubscriptions(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.
		Where("status = ? AND next_billing_date <= ?", models.SubscriptionActive, now).
		Order("next_billing_date").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *SubscriptionService) lockSubscription(tx *gorm.DB, subscriptionID uint) (*models.Subscription, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sub models.Subscription
	if err := q.First(&sub, subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// pauseResource asks the resource-lifecycle collaborator to suspend the
// underlying resource. Best-effort: the subscription is already paused and
// stays paused even if the collaborator fails.
func (s *SubscriptionService) pauseResource(sub *models.Subscription) {
	if err := s.resources.Pause(sub.ResourceType, sub.ResourceID); err != nil {
		s.logger.Warn("failed to pause resource",
			zap.Error(err),
			zap.Uint("subscription_id", sub.ID),
			zap.String("resource_type", sub.ResourceType),
			zap.String("resource_id", sub.ResourceID),
		)
	}
	if err := s.activity.Record(sub.UserID, "subscription_paused",
		fmt.Sprintf("%s %s paused after %d failed renewal attempts", sub.ResourceType, sub.ResourceID, sub.FailedAttempts)); err != nil {
		s.logger.Warn("pause notification failed", zap.Error(err), zap.Uint("subscription_id", sub.ID))
	}
}

func (s *SubscriptionService) resumeResource(sub *models.Subscription) {
	if sub == nil {
		return
	}
	if err := s.resources.Resume(sub.ResourceType, sub.ResourceID); err != nil {
		s.logger.Warn("failed to resume resource",
			zap.Error(err),
			zap.Uint("subscription_id", sub.ID),
			zap.String("resource_type", sub.ResourceType),
			zap.String("resource_id", sub.ResourceID),
		)
	}
	if err := s.activity.Record(sub.UserID, "subscription_resumed",
		fmt.Sprintf("%s %s resumed", sub.ResourceType, sub.ResourceID)); err != nil {
		s.logger.Warn("resume notification failed", zap.Error(err), zap.Uint("subscription_id", sub.ID))
	}
}
