package cron

import (
	"context"
	"time"

	"github.com/questx-lab/referral/internal/domain/pendingclaim"
	"github.com/questx-lab/referral/pkg/xcontext"
)

// PrunePendingClaimsCronJob forgets destination selections which were never
// answered.
type PrunePendingClaimsCronJob struct {
	tracker  *pendingclaim.Tracker
	ttl      time.Duration
	interval time.Duration
}

func NewPrunePendingClaimsCronJob(
	tracker *pendingclaim.Tracker,
	ttl, interval time.Duration,
) *PrunePendingClaimsCronJob {
	return &PrunePendingClaimsCronJob{
		tracker:  tracker,
		ttl:      ttl,
		interval: interval,
	}
}

func (job *PrunePendingClaimsCronJob) Do(ctx context.Context) {
	pruned := job.tracker.PruneOlderThan(time.Now().Add(-job.ttl))
	if pruned > 0 {
		xcontext.Logger(ctx).Infof("Pruned %d pending claims, %d left", pruned, job.tracker.Len())
	}
}

func (job *PrunePendingClaimsCronJob) RunNow() bool {
	return false
}

func (job *PrunePendingClaimsCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
