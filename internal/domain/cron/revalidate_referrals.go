package cron

import (
	"context"
	"time"

	"github.com/questx-lab/referral/internal/domain"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/pkg/xcontext"
)

// RevalidateReferralsCronJob withdraws the genuineness of referrals whose
// account has left the channel since they were recorded.
type RevalidateReferralsCronJob struct {
	referralDomain domain.ReferralDomain
	interval       time.Duration
}

func NewRevalidateReferralsCronJob(
	referralDomain domain.ReferralDomain,
	interval time.Duration,
) *RevalidateReferralsCronJob {
	return &RevalidateReferralsCronJob{
		referralDomain: referralDomain,
		interval:       interval,
	}
}

func (job *RevalidateReferralsCronJob) Do(ctx context.Context) {
	resp, err := job.referralDomain.RevalidateReferrals(ctx, &model.RevalidateReferralsRequest{})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot revalidate referrals: %v", err)
		return
	}

	if resp.Withdrawn > 0 {
		xcontext.Logger(ctx).Infof("Withdrew %d of %d referrals", resp.Withdrawn, resp.Checked)
	}
}

func (job *RevalidateReferralsCronJob) RunNow() bool {
	return false
}

func (job *RevalidateReferralsCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
