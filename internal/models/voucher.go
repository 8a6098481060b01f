package models

import (
	"fmt"
	"time"
)

// Voucher is a one-time or limited-use promotional credit grant. Codes are
// stored upper-case and matched case-insensitively. UsageCount only grows,
// atomically with the credit grant, and never exceeds MaxUsage.
type Voucher struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Code   string  `gorm:"uniqueIndex;not null"`
	Amount float64 `gorm:"type:decimal(20,2);not null"`

	MaxUsage   *int `gorm:""` // nil = unlimited
	UsageCount int  `gorm:"default:0"`

	ExpiresAt        *time.Time
	SingleUsePerUser bool `gorm:"default:true"`
	IsActive         bool `gorm:"default:true"`
}

// RedemptionRef is the deterministic idempotency reference written on the
// ledger entry of every redemption of this voucher. It is what makes
// single-use-per-user checks possible without a separate redemptions table.
func (v *Voucher) RedemptionRef() string {
	return fmt.Sprintf("VOUCHER_%d", v.ID)
}
