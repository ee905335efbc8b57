package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is a catalog row mapping a canonical symbol code to its tick
// geometry. Rows are upserted keyed on code and treated as immutable once
// trades reference them.
type Instrument struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Code string `gorm:"type:varchar(20);not null;uniqueIndex"`

	TickSize  decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	TickValue decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	SessionTimes string `gorm:"type:varchar(100)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Instrument) TableName() string {
	return "instruments"
}
