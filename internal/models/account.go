package models

import (
	"time"
)

type Account struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`
	Name   string `gorm:"type:varchar(100);not null"`

	Currency string `gorm:"type:varchar(10);not null;default:'USD'"`

	// BrokerTimeOffset is the fixed hour delta between the broker's server
	// clock and canonical time. Applied only on the webhook path.
	BrokerTimeOffset int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}
