package entity

import "time"

type WeeklyRecord struct {
	SnowFlakeBase

	Cycle     int     `gorm:"uniqueIndex:idx_weekly_records_cycle_account"`
	AccountID int64   `gorm:"uniqueIndex:idx_weekly_records_cycle_account"`
	Account   Account `gorm:"foreignKey:AccountID"`

	Destination     string `gorm:"size:255"`
	Credential      string `gorm:"size:255"`
	QualifyingCount int
	SubmittedAt     time.Time
}
