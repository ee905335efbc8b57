package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"

	TradeStatusOpen      = "OPEN"
	TradeStatusClosed    = "CLOSED"
	TradeStatusCancelled = "CANCELLED"
)

type Trade struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	UserID       uint64 `gorm:"not null;index:idx_trades_user_entry"`
	AccountID    uint64 `gorm:"not null;index"`
	InstrumentID uint64 `gorm:"not null;index"`

	Direction string `gorm:"type:varchar(10);not null"`

	EntryPrice decimal.Decimal  `gorm:"type:numeric(20,10);not null"`
	ExitPrice  *decimal.Decimal `gorm:"type:numeric(20,10)"`
	StopLoss   *decimal.Decimal `gorm:"type:numeric(20,10)"`
	TakeProfit *decimal.Decimal `gorm:"type:numeric(20,10)"`

	PositionSize decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Fees         decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	EntryTime time.Time  `gorm:"type:timestamptz;not null;index:idx_trades_user_entry"`
	ExitTime  *time.Time `gorm:"type:timestamptz"`

	// Derived fields, always recomputed from scratch on update.
	GrossPnL  decimal.Decimal `gorm:"column:gross_pnl;type:numeric(30,10);not null;default:0"`
	NetPnL    decimal.Decimal `gorm:"column:net_pnl;type:numeric(30,10);not null;default:0"`
	RMultiple decimal.Decimal `gorm:"column:r_multiple;type:numeric(20,10);not null;default:0"`

	Status string `gorm:"type:varchar(20);not null;default:'OPEN';index"`

	// ExternalID is the broker ticket. Unique per user when present; the
	// partial index is created in migrate, not by tag, because GORM tags
	// cannot express the NULL predicate.
	ExternalID *string `gorm:"type:varchar(64)"`

	SetupQuality     *int           `gorm:""`
	ExecutionQuality *int           `gorm:""`
	EmotionalState   string         `gorm:"type:varchar(50)"`
	Notes            string         `gorm:"type:text"`
	Tags             datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Trade) TableName() string {
	return "trades"
}
