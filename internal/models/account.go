package models

import "time"

// Account holds a user's credit balance. One account per user, created
// together with the user. Balance is only ever written by the credit
// service inside a serializable transaction; everything else reads it.
type Account struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint    `gorm:"uniqueIndex;not null"`
	Balance   float64 `gorm:"type:decimal(20,2);not null;default:0"`
}
