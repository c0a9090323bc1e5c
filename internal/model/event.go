package model

import "time"

type ReferralRecordedEvent struct {
	ReferrerID   int64     `json:"referrer_id"`
	ReferrerName string    `json:"referrer_name"`
	ReferredID   int64     `json:"referred_id"`
	ReferredName string    `json:"referred_name"`
	IsGenuine    bool      `json:"is_genuine"`
	RecordedAt   time.Time `json:"recorded_at"`
}

type ClosureEvent struct {
	RunID    string        `json:"run_id"`
	Kind     string        `json:"kind"`
	Label    string        `json:"label"`
	ClosedAt time.Time     `json:"closed_at"`
	Ranking  []RankedClaim `json:"ranking"`
}
