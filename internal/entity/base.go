package entity

import (
	"time"
)

// SnowFlakeBase is embedded by rows whose id is generated by idutil. Rows
// are hard deleted by closures, so there is no DeletedAt column; a soft
// deleted row would still hold its unique key.
type SnowFlakeBase struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
