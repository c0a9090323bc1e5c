package model

import "time"

type RankedClaim struct {
	Rank        int    `json:"rank"`
	AccountID   int64  `json:"account_id"`
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Credential  string `json:"credential"`
	Count       int    `json:"count"`
}

type CloseWeekRequest struct {
	OperatorID int64 `json:"operator_id"`
}

type CloseWeekResponse struct {
	RunID     string        `json:"run_id"`
	Cycle     int           `json:"cycle"`
	NextCycle int           `json:"next_cycle"`
	ClosedAt  time.Time     `json:"closed_at"`
	Ranking   []RankedClaim `json:"ranking"`
}

type CloseMonthRequest struct {
	OperatorID int64 `json:"operator_id"`
}

type CloseMonthResponse struct {
	RunID    string        `json:"run_id"`
	Period   string        `json:"period"`
	ClosedAt time.Time     `json:"closed_at"`
	Ranking  []RankedClaim `json:"ranking"`
}

type GetCurrentCycleRequest struct{}

type GetCurrentCycleResponse struct {
	Cycle     int       `json:"cycle"`
	StartedAt time.Time `json:"started_at"`
}

type ResetCycleRequest struct {
	OperatorID int64 `json:"operator_id"`
}

type ResetCycleResponse struct {
	Cycle int `json:"cycle"`
}
