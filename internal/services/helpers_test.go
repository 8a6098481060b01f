package services

import (
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mahalbangetid-beep/scb-sub002/config"
	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
)

type fakeActivitySink struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

type recordedEvent struct {
	UserID uint
	Event  string
	Detail string
}

func (f *fakeActivitySink) Record(userID uint, event, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, recordedEvent{UserID: userID, Event: event, Detail: detail})
	return nil
}

func (f *fakeActivitySink) eventsOf(kind string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.Event == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeResourceManager struct {
	mu      sync.Mutex
	paused  []string
	resumed []string
}

func (f *fakeResourceManager) Pause(resourceType, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = append(f.paused, resourceType+"/"+resourceID)
	return nil
}

func (f *fakeResourceManager) Resume(resourceType, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed = append(f.resumed, resourceType+"/"+resourceID)
	return nil
}

type testEnv struct {
	db        *gorm.DB
	cfg       *config.Config
	rates     *RateService
	credit    *CreditService
	vouchers  *VoucherService
	subs      *SubscriptionService
	scheduler *RenewalScheduler
	activity  *fakeActivitySink
	resources *fakeResourceManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic("failed to connect database")
	}
	// A single connection keeps in-memory sqlite transactions strictly
	// serialized, so concurrent callers behave like they would against a
	// serializable store.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	db.Migrator().DropTable(&models.User{}, &models.Account{}, &models.LedgerEntry{},
		&models.Subscription{}, &models.Voucher{}, &models.Setting{})
	db.AutoMigrate(&models.User{}, &models.Account{}, &models.LedgerEntry{},
		&models.Subscription{}, &models.Voucher{}, &models.Setting{})

	cfg := &config.Config{
		JWTSecret:           "test-secret",
		LedgerSecret:        "test-secret",
		DefaultMessageRate:  0.01,
		LowBalanceThreshold: 1.0,
		DefaultGraceDays:    3,
		PricingCacheTTL:     10 * time.Second,
		MaxPassDuration:     30 * time.Minute,
	}

	logger := zap.NewNop()
	activity := &fakeActivitySink{}
	resources := &fakeResourceManager{}

	rates := NewRateService(db, cfg, logger)
	credit := NewCreditService(db, rates, activity, cfg, logger)
	vouchers := NewVoucherService(db, credit, logger)
	subs := NewSubscriptionService(db, credit, resources, activity, cfg, logger)
	scheduler := NewRenewalScheduler(subs, activity, cfg, logger)

	return &testEnv{
		db:        db,
		cfg:       cfg,
		rates:     rates,
		credit:    credit,
		vouchers:  vouchers,
		subs:      subs,
		scheduler: scheduler,
		activity:  activity,
		resources: resources,
	}
}

func (e *testEnv) seedUser(t *testing.T, username, role string, balance float64) models.User {
	t.Helper()

	user := models.User{
		Username: username,
		Password: "hashed",
		Role:     role,
		IsActive: true,
		Version:  1,
	}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := e.db.Create(&models.Account{UserID: user.ID, Balance: balance}).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return user
}

func (e *testEnv) balanceOf(t *testing.T, userID uint) float64 {
	t.Helper()

	var account models.Account
	if err := e.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	return account.Balance
}

// makeDue backdates a subscription's billing date so a renewal picks it up.
func makeDue(t *testing.T, env *testEnv, subID uint) {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	err := env.db.Model(&models.Subscription{}).Where("id = ?", subID).
		Update("next_billing_date", past).Error
	if err != nil {
		t.Fatalf("backdate subscription: %v", err)
	}
}

func (e *testEnv) setPricing(t *testing.T, key string, value string) {
	t.Helper()

	if err := e.db.Create(&models.Setting{
		Category: models.SettingCategoryPricing,
		Key:      key,
		Value:    value,
	}).Error; err != nil {
		t.Fatalf("seed pricing setting: %v", err)
	}
	e.rates.Invalidate()
}
