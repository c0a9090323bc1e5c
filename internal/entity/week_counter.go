package entity

import "time"

const WeekCounterID = 1

// WeekCounter is a singleton row, its ID is always WeekCounterID.
type WeekCounter struct {
	ID        int `gorm:"primaryKey;autoIncrement:false"`
	Cycle     int
	StartedAt time.Time
	UpdatedAt time.Time
}
