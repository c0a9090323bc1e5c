package domain

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/questx-lab/referral/internal/client"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/pkg/xcontext"
)

const minGenuineNameLength = 3

// IsGenuineAccount classifies a referred account. hasProfilePhoto is only
// called when the cheaper checks could not accept the account.
func IsGenuineAccount(snapshot model.AccountSnapshot, hasProfilePhoto func() bool) bool {
	if snapshot.IsDeleted {
		return false
	}

	if strings.TrimSpace(snapshot.Handle) != "" {
		return true
	}

	name := strings.TrimSpace(snapshot.FirstName + " " + snapshot.LastName)
	if utf8.RuneCountInString(name) >= minGenuineNameLength {
		return true
	}

	return hasProfilePhoto()
}

type RealityHeuristic interface {
	IsGenuine(ctx context.Context, snapshot model.AccountSnapshot) bool
}

type realityHeuristic struct {
	profileLookup client.ProfileLookup
}

func NewRealityHeuristic(profileLookup client.ProfileLookup) *realityHeuristic {
	return &realityHeuristic{profileLookup: profileLookup}
}

func (h *realityHeuristic) IsGenuine(ctx context.Context, snapshot model.AccountSnapshot) bool {
	return IsGenuineAccount(snapshot, func() bool {
		ok, err := h.profileLookup.HasProfilePhoto(ctx, snapshot.ID)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot get profile photo of %d: %v", snapshot.ID, err)
			return false
		}

		return ok
	})
}
