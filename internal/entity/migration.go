package entity

import "time"

type Migration struct {
	Version   string `gorm:"primaryKey;size:32"`
	AppliedAt time.Time
}
