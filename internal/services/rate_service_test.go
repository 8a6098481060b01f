package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
)

func TestMessageRateDefault(t *testing.T) {
	env := newTestEnv(t)
	user := models.User{Role: models.RoleUser}

	rate := env.rates.MessageRate(&user, PlatformWhatsapp, false)
	assert.InDelta(t, env.cfg.DefaultMessageRate, rate, 1e-9)
}

func TestMessageRateGlobalSettingBeatsDefault(t *testing.T) {
	env := newTestEnv(t)
	env.setPricing(t, models.SettingMessageRate, "0.05")
	user := models.User{Role: models.RoleUser}

	rate := env.rates.MessageRate(&user, PlatformWhatsapp, false)
	assert.InDelta(t, 0.05, rate, 1e-9)
}

func TestMessageRateUserOverrideBeatsGlobal(t *testing.T) {
	env := newTestEnv(t)
	env.setPricing(t, models.SettingMessageRate, "0.05")
	override := 0.03
	user := models.User{Role: models.RoleUser, MessageRateOverride: &override}

	rate := env.rates.MessageRate(&user, PlatformWhatsapp, false)
	assert.InDelta(t, 0.03, rate, 1e-9)
}

func TestMessageRatePlatformBeatsOverride(t *testing.T) {
	env := newTestEnv(t)
	env.setPricing(t, models.SettingTelegramMessageRate, "0.04")
	env.setPricing(t, models.SettingWhatsappMessageRate, "0.03")
	override := 0.10
	user := models.User{Role: models.RoleUser, MessageRateOverride: &override}

	assert.InDelta(t, 0.04, env.rates.MessageRate(&user, PlatformTelegram, false), 1e-9)
	assert.InDelta(t, 0.03, env.rates.MessageRate(&user, PlatformWhatsapp, false), 1e-9)
}

func TestMessageRateGroupBeatsPlatform(t *testing.T) {
	env := newTestEnv(t)
	env.setPricing(t, models.SettingWhatsappMessageRate, "0.01")
	env.setPricing(t, models.SettingTelegramMessageRate, "0.01")
	env.setPricing(t, models.SettingGroupMessageRate, "0.02")
	user := models.User{Role: models.RoleUser}

	assert.InDelta(t, 0.02, env.rates.MessageRate(&user, PlatformWhatsapp, true), 1e-9)
	assert.InDelta(t, 0.02, env.rates.MessageRate(&user, PlatformTelegram, true), 1e-9)
}

func TestMessageRateDiscountRoundsHalfUp(t *testing.T) {
	env := newTestEnv(t)
	env.setPricing(t, models.SettingGroupMessageRate, "0.02")
	user := models.User{Role: models.RoleUser, DiscountPercent: 10}

	// 10% off 0.02 is 0.018, which rounds half-up to 0.02.
	rate := env.rates.MessageRate(&user, PlatformWhatsapp, true)
	assert.InDelta(t, 0.02, rate, 1e-9)
}

func TestMessageRateLargeDiscount(t *testing.T) {
	env := newTestEnv(t)
	env.setPricing(t, models.SettingMessageRate, "0.10")
	user := models.User{Role: models.RoleUser, DiscountPercent: 50}

	rate := env.rates.MessageRate(&user, PlatformWhatsapp, false)
	assert.InDelta(t, 0.05, rate, 1e-9)
}

func TestPricingCacheServesStaleUntilInvalidated(t *testing.T) {
	env := newTestEnv(t)
	env.setPricing(t, models.SettingMessageRate, "0.05")
	user := models.User{Role: models.RoleUser}

	assert.InDelta(t, 0.05, env.rates.MessageRate(&user, PlatformWhatsapp, false), 1e-9)

	// Change the stored value behind the cache's back: within the TTL the
	// resolver keeps serving the cached price.
	env.db.Model(&models.Setting{}).
		Where("category = ? AND key = ?", models.SettingCategoryPricing, models.SettingMessageRate).
		Update("value", "0.09")
	assert.InDelta(t, 0.05, env.rates.MessageRate(&user, PlatformWhatsapp, false), 1e-9)

	env.rates.Invalidate()
	assert.InDelta(t, 0.09, env.rates.MessageRate(&user, PlatformWhatsapp, false), 1e-9)
}

func TestPricingCacheExpiresByTTL(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.PricingCacheTTL = 20 * time.Millisecond
	env.setPricing(t, models.SettingMessageRate, "0.05")
	user := models.User{Role: models.RoleUser}

	assert.InDelta(t, 0.05, env.rates.MessageRate(&user, PlatformWhatsapp, false), 1e-9)

	env.db.Model(&models.Setting{}).
		Where("category = ? AND key = ?", models.SettingCategoryPricing, models.SettingMessageRate).
		Update("value", "0.07")

	time.Sleep(30 * time.Millisecond)
	assert.InDelta(t, 0.07, env.rates.MessageRate(&user, PlatformWhatsapp, false), 1e-9)
}

func TestSetPricingUpsertsAndInvalidates(t *testing.T) {
	env := newTestEnv(t)
	user := models.User{Role: models.RoleUser}

	assert.NoError(t, env.rates.SetPricing(models.SettingMessageRate, 0.05))
	assert.InDelta(t, 0.05, env.rates.MessageRate(&user, PlatformWhatsapp, false), 1e-9)

	assert.NoError(t, env.rates.SetPricing(models.SettingMessageRate, 0.08))
	assert.InDelta(t, 0.08, env.rates.MessageRate(&user, PlatformWhatsapp, false), 1e-9)

	var count int64
	env.db.Model(&models.Setting{}).
		Where("category = ? AND key = ?", models.SettingCategoryPricing, models.SettingMessageRate).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestMessageRateIgnoresNonNumericSetting(t *testing.T) {
	env := newTestEnv(t)
	env.setPricing(t, models.SettingMessageRate, "not-a-number")
	user := models.User{Role: models.RoleUser}

	rate := env.rates.MessageRate(&user, PlatformWhatsapp, false)
	assert.InDelta(t, env.cfg.DefaultMessageRate, rate, 1e-9)
}
