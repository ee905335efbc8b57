package models

import (
	"time"
)

type User struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	Email string `gorm:"type:varchar(255);not null;uniqueIndex"`

	// APIKey authenticates the broker webhook feed for this user.
	APIKey          string `gorm:"type:varchar(64);not null;uniqueIndex"`
	DailyTradeLimit int    `gorm:"not null;default:2"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
