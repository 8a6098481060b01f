package database

import (
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
)

// Connect opens the postgres database and returns the handle. Services take
// the handle by injection; there is no package-level DB.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// ConnectSQLite opens a pure-Go sqlite database. Used for development and
// tests; sqlite's single-writer model gives the serializable behaviour the
// billing transactions rely on.
func ConnectSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the billing schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.LedgerEntry{},
		&models.Subscription{},
		&models.Voucher{},
		&models.Setting{},
	)
}
