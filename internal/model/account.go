package model

import "time"

// AccountSnapshot is what the transport knows about an account at the time
// of an event.
type AccountSnapshot struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Handle    string `json:"handle"`
	IsDeleted bool   `json:"is_deleted"`
}

type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	Departed  bool      `json:"departed"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterAccountRequest struct {
	Account AccountSnapshot `json:"account"`
}

type RegisterAccountResponse struct {
	Account Account `json:"account"`
}

type MarkDepartedRequest struct {
	AccountID int64 `json:"account_id"`
}

type MarkDepartedResponse struct{}
