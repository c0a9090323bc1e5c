package domain

import (
	"context"
	"strings"
	"time"

	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/domain/pendingclaim"
	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/xcontext"
	"golang.org/x/exp/slices"
)

type ClaimDomain interface {
	SelectDestination(context.Context, *model.SelectDestinationRequest) (*model.SelectDestinationResponse, error)
	SubmitCredential(context.Context, *model.SubmitCredentialRequest) (*model.SubmitCredentialResponse, error)
}

type claimDomain struct {
	claimRepo      repository.ClaimRepository
	referralDomain ReferralDomain
	tracker        *pendingclaim.Tracker
	now            func() time.Time
}

func NewClaimDomain(
	claimRepo repository.ClaimRepository,
	referralDomain ReferralDomain,
	tracker *pendingclaim.Tracker,
) *claimDomain {
	return &claimDomain{
		claimRepo:      claimRepo,
		referralDomain: referralDomain,
		tracker:        tracker,
		now:            time.Now,
	}
}

// SelectDestination remembers the destination until the account answers the
// prompt identified by PromptRef. A previous selection is dropped.
func (d *claimDomain) SelectDestination(
	ctx context.Context, req *model.SelectDestinationRequest,
) (*model.SelectDestinationResponse, error) {
	if !slices.Contains(xcontext.Configs(ctx).Referral.Destinations, req.Destination) {
		return nil, errorx.New(errorx.BadRequest, "Unknown destination %q", req.Destination)
	}

	d.tracker.StartClaim(req.AccountID, req.Destination, req.PromptRef)
	return &model.SelectDestinationResponse{}, nil
}

// The pending claim is gone once a rejection is returned, the account has to
// pick a website from the choices again.
const chooseAgainHint = "Tap a website button again to retry."

// SubmitCredential turns an answer to a destination prompt into the claim of
// the current cycle. A message which answers no pending prompt is ignored.
func (d *claimDomain) SubmitCredential(
	ctx context.Context, req *model.SubmitCredentialRequest,
) (*model.SubmitCredentialResponse, error) {
	capture, result := d.tracker.TryConsume(req.AccountID, req.PromptRef, req.Credential)
	if result != pendingclaim.Consumed {
		return &model.SubmitCredentialResponse{Consumed: false}, nil
	}

	credential := strings.TrimSpace(capture.Credential)
	if capture.Destination == "" || credential == "" {
		common.Inc(common.ClaimSubmittedTotal, "invalid")
		return nil, errorx.New(errorx.BadRequest, "Missing destination or username. %s", chooseAgainHint)
	}

	// Drop referrals whose account left the channel before counting.
	_, err := d.referralDomain.RevalidateReferrals(ctx,
		&model.RevalidateReferralsRequest{ReferrerID: req.AccountID})
	if err != nil {
		return nil, err
	}

	count, err := d.referralDomain.CountQualifying(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if !qualifies(ctx, count) {
		common.Inc(common.ClaimSubmittedTotal, "not_qualified")
		return nil, errorx.New(errorx.BadRequest,
			"You need at least %d genuine referrals to claim, you have %d. %s",
			xcontext.Configs(ctx).Referral.MinReferralThreshold, count, chooseAgainHint)
	}

	claim := &entity.CurrentCycleClaim{
		AccountID:       req.AccountID,
		Destination:     capture.Destination,
		Credential:      credential,
		QualifyingCount: int(count),
		SubmittedAt:     d.now(),
	}

	if err := d.claimRepo.Upsert(ctx, claim); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upsert claim of %d: %v", req.AccountID, err)
		return nil, errorx.Unknown
	}

	common.Inc(common.ClaimSubmittedTotal, "accepted")
	return &model.SubmitCredentialResponse{
		Consumed:        true,
		Destination:     claim.Destination,
		Credential:      claim.Credential,
		QualifyingCount: claim.QualifyingCount,
		SubmittedAt:     claim.SubmittedAt,
	}, nil
}
