package models

import (
	"time"
)

// TradeDayCounter backs the daily trade limit. The count is advanced with an
// atomic increment-and-compare so concurrent ingestions cannot overshoot the
// limit between check and insert.
type TradeDayCounter struct {
	ID     uint64    `gorm:"primaryKey;autoIncrement"`
	UserID uint64    `gorm:"not null;uniqueIndex:idx_day_counter_user_date"`
	Date   time.Time `gorm:"type:date;not null;uniqueIndex:idx_day_counter_user_date"`

	Count int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TradeDayCounter) TableName() string {
	return "trade_day_counters"
}
