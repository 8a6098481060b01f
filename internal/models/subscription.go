package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPaused    SubscriptionStatus = "PAUSED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

const (
	ResourceTypeDevice = "device"
	ResourceTypeBot    = "bot"
	ResourceTypePanel  = "panel"
)

// Subscription bills one provisioned resource (device, bot or panel) once a
// calendar month. CANCELLED is terminal; the record stays for audit.
type Subscription struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID       uint   `gorm:"index;not null"`
	ResourceType string `gorm:"type:varchar(20);not null"`
	ResourceID   string `gorm:"type:varchar(100);not null"`

	MonthlyFee float64            `gorm:"type:decimal(20,2);not null"`
	Status     SubscriptionStatus `gorm:"type:varchar(20);index;not null;default:'ACTIVE'"`

	StartDate       time.Time
	NextBillingDate time.Time `gorm:"index;not null"`
	LastBilledAt    *time.Time

	// FailedAttempts counts consecutive failed renewals; once it reaches
	// GracePeriodDays the subscription is paused. Reset on any success.
	FailedAttempts    int `gorm:"default:0"`
	GracePeriodDays   int `gorm:"default:3"`
	LastFailureReason string

	// IsFreeFirst grants the first due renewal free of charge. The flag is
	// consumed when that renewal runs, not at creation time.
	IsFreeFirst bool `gorm:"default:false"`

	PausedAt *time.Time
}

func IsValidResourceType(t string) bool {
	switch t {
	case ResourceTypeDevice, ResourceTypeBot, ResourceTypePanel:
		return true
	}
	return false
}
