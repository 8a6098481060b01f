package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Username  string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null" json:"-"`
	Role      string `gorm:"not null;default:'user'"`
	IsActive  bool   `gorm:"default:true"`
	Version   int    `gorm:"default:1"`

	// Per-user billing adjustments. DiscountPercent is applied on top of the
	// resolved message rate; MessageRateOverride replaces the global rate but
	// not platform/group specific rates.
	DiscountPercent     float64  `gorm:"type:decimal(5,2);default:0"`
	MessageRateOverride *float64 `gorm:"type:decimal(20,2)"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
