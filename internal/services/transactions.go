package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const txMaxRetries = 3

// ErrTransactionConflict is returned after the store aborted a balance
// transaction txMaxRetries times in a row due to contention.
var ErrTransactionConflict = errors.New("transaction aborted due to contention, please retry")

// errTxContended marks an optimistic-check failure inside a transaction as
// retryable (e.g. a voucher usage slot taken by a concurrent redeemer).
var errTxContended = errors.New("write conflict")

// serializableTx runs fn inside one serializable transaction and retries a
// bounded number of times when the store aborts it on contention. Every
// balance mutation in the billing core goes through here: the transaction
// reads the current balance and writes the new one, so two concurrent
// writers against the same account can never both observe the old value.
func serializableTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < txMaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 25 * time.Millisecond)
		}
		err = db.Transaction(fn, txOptions(db)...)
		if err == nil || !isRetryableTxError(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrTransactionConflict, err)
}

func txOptions(db *gorm.DB) []*sql.TxOptions {
	// Postgres needs the isolation level raised explicitly. sqlite write
	// transactions are serializable already, and its driver rejects
	// non-default levels.
	if db.Dialector.Name() == "postgres" {
		return []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	}
	return nil
}

func isRetryableTxError(err error) bool {
	if errors.Is(err, errTxContended) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "could not serialize access") || // postgres 40001
		strings.Contains(msg, "deadlock detected") || // postgres 40P01
		strings.Contains(msg, "database is locked") || // sqlite busy
		strings.Contains(msg, "SQLITE_BUSY")
}
