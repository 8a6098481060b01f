package models

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type EntryKind string

const (
	EntryKindCredit EntryKind = "CREDIT"
	EntryKindDebit  EntryKind = "DEBIT"
)

// LedgerEntry is one immutable row in the append-only balance audit log.
// Rows are created atomically with the balance write they describe and are
// never updated or deleted; BalanceAfter of the newest entry for an account
// always equals the account's current balance.
type LedgerEntry struct {
	ID             uint      `gorm:"primarykey"`
	CreatedAt      time.Time `gorm:"precision:3"` // Millisecond precision
	AccountID      uint      `gorm:"index;not null"`
	Kind           EntryKind `gorm:"type:varchar(10);not null"`
	Amount         float64   `gorm:"type:decimal(20,2);not null"`
	BalanceBefore  float64   `gorm:"type:decimal(20,2);not null"`
	BalanceAfter   float64   `gorm:"type:decimal(20,2);not null"`
	Description    string    `gorm:"type:text"`
	IdempotencyRef string    `gorm:"type:varchar(100);index"`
	Operator       string    `gorm:"type:varchar(100)"` // Username or 'system'
	Hash           string    `gorm:"type:varchar(64);default:''"` // HMAC SHA256
}

// GenerateHash generates a tamper-proof hash for the ledger entry
func (e *LedgerEntry) GenerateHash(secret string) string {
	data := fmt.Sprintf("%d|%d|%s|%.2f|%.2f|%.2f|%s|%s|%s",
		e.AccountID, e.CreatedAt.UnixNano(), e.Kind, e.Amount, e.BalanceBefore, e.BalanceAfter,
		e.Description, e.IdempotencyRef, e.Operator)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
