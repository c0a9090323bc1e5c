package model

import "time"

type SelectDestinationRequest struct {
	AccountID   int64  `json:"account_id"`
	Destination string `json:"destination"`
	PromptRef   int    `json:"prompt_ref"`
}

type SelectDestinationResponse struct{}

type SubmitCredentialRequest struct {
	AccountID  int64  `json:"account_id"`
	PromptRef  int    `json:"prompt_ref"`
	Credential string `json:"credential"`
}

type SubmitCredentialResponse struct {
	// Consumed is false when the message was not an answer to a pending
	// prompt, nothing else is set in that case.
	Consumed        bool      `json:"consumed"`
	Destination     string    `json:"destination"`
	Credential      string    `json:"credential"`
	QualifyingCount int       `json:"qualifying_count"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

type GetEligibleAccountsRequest struct {
	OperatorID int64 `json:"operator_id"`
}

type EligibleAccount struct {
	AccountID       int64  `json:"account_id"`
	Name            string `json:"name"`
	QualifyingCount int64  `json:"qualifying_count"`
}

type GetEligibleAccountsResponse struct {
	Accounts []EligibleAccount `json:"accounts"`
}
