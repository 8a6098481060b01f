package services

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mahalbangetid-beep/scb-sub002/config"
	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

const (
	PlatformWhatsapp = "whatsapp"
	PlatformTelegram = "telegram"
)

// RateService resolves the per-message price. The pricing category of the
// settings table changes rarely, so it is read in bulk and cached for a few
// seconds; admin price changes call Invalidate to bypass the TTL.
type RateService struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *zap.Logger

	mu        sync.RWMutex
	cached    map[string]float64
	fetchedAt time.Time
}

func NewRateService(db *gorm.DB, cfg *config.Config, logger *zap.Logger) *RateService {
	return &RateService{db: db, cfg: cfg, logger: logger}
}

// MessageRate resolves the price of one message for the given user.
// Precedence, highest first: group rate (when isGroup), platform-specific
// rate, per-user override, cached global rate, hardcoded default. The user's
// discount percentage is then applied multiplicatively and the result is
// rounded to cents, half-up.
func (s *RateService) MessageRate(user *models.User, platform string, isGroup bool) float64 {
	pricing := s.pricing()

	rate := s.cfg.DefaultMessageRate
	if v, ok := pricing[models.SettingMessageRate]; ok {
		rate = v
	}
	if user.MessageRateOverride != nil {
		rate = *user.MessageRateOverride
	}
	switch strings.ToLower(platform) {
	case PlatformTelegram:
		if v, ok := pricing[models.SettingTelegramMessageRate]; ok {
			rate = v
		}
	default:
		if v, ok := pricing[models.SettingWhatsappMessageRate]; ok {
			rate = v
		}
	}
	if isGroup {
		if v, ok := pricing[models.SettingGroupMessageRate]; ok {
			rate = v
		}
	}

	if user.DiscountPercent > 0 {
		rate = rate * (1 - user.DiscountPercent/100)
	}

	return utils.Round2(rate)
}

// Invalidate drops the cached pricing so the next resolution re-reads the
// settings table immediately.
func (s *RateService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// Pricing returns a copy of the current (cached) pricing configuration.
func (s *RateService) Pricing() map[string]float64 {
	pricing := s.pricing()
	out := make(map[string]float64, len(pricing))
	for k, v := range pricing {
		out[k] = v
	}
	return out
}

// SetPricing upserts one pricing setting and invalidates the cache.
func (s *RateService) SetPricing(key string, value float64) error {
	setting := models.Setting{
		Category: models.SettingCategoryPricing,
		Key:      key,
		Value:    strconv.FormatFloat(value, 'f', -1, 64),
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

func (s *RateService) pricing() map[string]float64 {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.cfg.PricingCacheTTL {
		cached := s.cached
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have refreshed while we waited for the lock
	if s.cached != nil && time.Since(s.fetchedAt) < s.cfg.PricingCacheTTL {
		return s.cached
	}

	var settings []models.Setting
	if err := s.db.Where("category = ?", models.SettingCategoryPricing).Find(&settings).Error; err != nil {
		s.logger.Warn("failed to load pricing settings, keeping previous values", zap.Error(err))
		if s.cached != nil {
			return s.cached
		}
		return map[string]float64{}
	}

	values := make(map[string]float64, len(settings))
	for _, setting := range settings {
		v, err := strconv.ParseFloat(setting.Value, 64)
		if err != nil {
			s.logger.Warn("ignoring non-numeric pricing setting",
				zap.String("key", setting.Key),
				zap.String("value", setting.Value),
			)
			continue
		}
		values[setting.Key] = v
	}

	s.cached = values
	s.fetchedAt = time.Now()
	return values
}
