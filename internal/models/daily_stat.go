package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyStat is a per-user per-day snapshot of closed-trade results, rebuilt
// by the daily stats job from the trade table.
type DailyStat struct {
	ID     uint64    `gorm:"primaryKey;autoIncrement"`
	UserID uint64    `gorm:"not null;uniqueIndex:idx_daily_stat_user_date"`
	Date   time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_stat_user_date"`

	TradesCount int `gorm:"not null;default:0"`
	WinCount    int `gorm:"not null;default:0"`
	LossCount   int `gorm:"not null;default:0"`

	NetPnL        decimal.Decimal `gorm:"column:net_pnl;type:numeric(30,10);not null;default:0"`
	CumulativePnL decimal.Decimal `gorm:"column:cumulative_pnl;type:numeric(30,10);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (DailyStat) TableName() string {
	return "daily_stats"
}
