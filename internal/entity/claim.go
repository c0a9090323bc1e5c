package entity

import "time"

// CurrentCycleClaim is the reward claim of an account for the running cycle.
type CurrentCycleClaim struct {
	AccountID int64   `gorm:"primaryKey;autoIncrement:false"`
	Account   Account `gorm:"foreignKey:AccountID"`

	Destination     string `gorm:"size:255"`
	Credential      string `gorm:"size:255"`
	QualifyingCount int
	SubmittedAt     time.Time
}
