package model

import "time"

type ReferralEdge struct {
	ID             int64     `json:"id"`
	ReferrerID     int64     `json:"referrer_id"`
	ReferredID     int64     `json:"referred_id"`
	ReferredHandle string    `json:"referred_handle"`
	Status         string    `json:"status"`
	IsGenuine      bool      `json:"is_genuine"`
	CreatedAt      time.Time `json:"created_at"`
}

type RecordReferralRequest struct {
	ReferrerID int64           `json:"referrer_id"`
	Referred   AccountSnapshot `json:"referred"`
	IsGenuine  bool            `json:"is_genuine"`
}

type RecordReferralResponse struct {
	Edge ReferralEdge `json:"edge"`
}

// ReferRequest is a referral arriving through a deep link. Unlike
// RecordReferralRequest, the genuineness is decided by the domain.
type ReferRequest struct {
	ReferrerID int64           `json:"referrer_id"`
	Referred   AccountSnapshot `json:"referred"`
}

type ReferResponse struct {
	Edge ReferralEdge `json:"edge"`
}

type GetMyStatsRequest struct {
	AccountID int64 `json:"account_id"`
}

type GetMyStatsResponse struct {
	QualifyingCount int64 `json:"qualifying_count"`
	NewCount        int64 `json:"new_count"`
	// Rank is 1-based among referrers ordered by new edges, 0 if unranked.
	Rank      int64 `json:"rank"`
	Threshold int   `json:"threshold"`
	Qualified bool  `json:"qualified"`
}

type GetLeaderboardRequest struct{}

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
	Count     int64  `json:"count"`
}

type GetLeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type RevalidateReferralsRequest struct {
	ReferrerID int64 `json:"referrer_id"`
}

type RevalidateReferralsResponse struct {
	Checked   int `json:"checked"`
	Withdrawn int `json:"withdrawn"`
}
