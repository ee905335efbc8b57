package db

import (
	"tradelog/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	if err := db.Gorm.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Instrument{},
		&models.Trade{},
		&models.DailyChecklist{},
		&models.TradeDayCounter{},
		&models.DailyStat{},
	); err != nil {
		return err
	}

	// Broker tickets are unique per user only when present. GORM tags cannot
	// express the partial predicate, so the index is created here.
	return db.Gorm.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_user_external
		 ON trades (user_id, external_id)
		 WHERE external_id IS NOT NULL`,
	).Error
}
