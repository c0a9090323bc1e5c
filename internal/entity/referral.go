package entity

import (
	"github.com/questx-lab/referral/pkg/enum"
)

type ReferralStatus string

var (
	ReferralStatusNew     = enum.New(ReferralStatus("new"))
	ReferralStatusCounted = enum.New(ReferralStatus("counted"))
	ReferralStatusEnded   = enum.New(ReferralStatus("ended"))
)

type ReferralEdge struct {
	SnowFlakeBase

	ReferrerID int64   `gorm:"index"`
	Referrer   Account `gorm:"foreignKey:ReferrerID"`

	// An account can be referred at most once, ever.
	ReferredID int64   `gorm:"uniqueIndex"`
	Referred   Account `gorm:"foreignKey:ReferredID"`

	ReferredHandle string         `gorm:"size:255"`
	Status         ReferralStatus `gorm:"size:16;index"`
	IsGenuine      bool
}
