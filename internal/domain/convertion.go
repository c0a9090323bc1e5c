package domain

import (
	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/model"
)

func convertAccount(account *entity.Account) model.Account {
	if account == nil {
		return model.Account{}
	}

	return model.Account{
		ID:        account.ID,
		Name:      account.DisplayName(),
		Handle:    account.Handle,
		Departed:  account.Departed,
		CreatedAt: account.CreatedAt,
	}
}

func convertReferralEdge(edge *entity.ReferralEdge) model.ReferralEdge {
	if edge == nil {
		return model.ReferralEdge{}
	}

	return model.ReferralEdge{
		ID:             edge.ID,
		ReferrerID:     edge.ReferrerID,
		ReferredID:     edge.ReferredID,
		ReferredHandle: edge.ReferredHandle,
		Status:         string(edge.Status),
		IsGenuine:      edge.IsGenuine,
		CreatedAt:      edge.CreatedAt,
	}
}

func accountFromSnapshot(snapshot model.AccountSnapshot) *entity.Account {
	return &entity.Account{
		ID:        snapshot.ID,
		FirstName: snapshot.FirstName,
		LastName:  snapshot.LastName,
		Handle:    snapshot.Handle,
	}
}

// displayNames maps account id to display name, falling back to the id for
// accounts which are unknown or nameless.
func displayNames(accounts []entity.Account) map[int64]string {
	names := map[int64]string{}
	for _, a := range accounts {
		if name := a.DisplayName(); name != "" {
			names[a.ID] = name
		} else if a.Handle != "" {
			names[a.ID] = "@" + a.Handle
		}
	}

	return names
}
