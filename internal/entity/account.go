package entity

import (
	"strings"
	"time"
)

type Account struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	FirstName string `gorm:"size:255"`
	LastName  string `gorm:"size:255"`
	Handle    string `gorm:"size:255"`
	Departed  bool
}

func (a Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
