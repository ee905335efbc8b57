package models

import (
	"time"

	"gorm.io/datatypes"
)

// DailyChecklist is one row per (user, date). Overwritten on re-submission;
// the readiness gate reads Passed.
type DailyChecklist struct {
	ID     uint64    `gorm:"primaryKey;autoIncrement"`
	UserID uint64    `gorm:"not null;uniqueIndex:idx_checklist_user_date"`
	Date   time.Time `gorm:"type:date;not null;uniqueIndex:idx_checklist_user_date"`

	ScorePercentage float64        `gorm:"not null;default:0"`
	Passed          bool           `gorm:"not null;default:false"`
	Responses       datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (DailyChecklist) TableName() string {
	return "daily_checklists"
}
