package domain

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/domain/statistic"
	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/idutil"
	"github.com/questx-lab/referral/pkg/pubsub"
	"github.com/questx-lab/referral/pkg/xcontext"
	"gorm.io/gorm"
)

const (
	closureKindWeek  = "week"
	closureKindMonth = "month"
)

type ClosureDomain interface {
	GetCurrentCycle(context.Context, *model.GetCurrentCycleRequest) (*model.GetCurrentCycleResponse, error)
	ResetCycle(context.Context, *model.ResetCycleRequest) (*model.ResetCycleResponse, error)
	CloseWeek(context.Context, *model.CloseWeekRequest) (*model.CloseWeekResponse, error)
	CloseMonth(context.Context, *model.CloseMonthRequest) (*model.CloseMonthResponse, error)
}

type closureDomain struct {
	// mutex serializes closures and resets inside this process. Across
	// processes the week counter row lock does the same job.
	mutex sync.Mutex

	accountRepo       repository.AccountRepository
	referralRepo      repository.ReferralRepository
	claimRepo         repository.ClaimRepository
	weeklyRecordRepo  repository.WeeklyRecordRepository
	monthlyRecordRepo repository.MonthlyRecordRepository
	weekCounterRepo   repository.WeekCounterRepository
	weekCounter       WeekCounter
	leaderboard       statistic.Leaderboard
	publisher         pubsub.Publisher
	operatorVerifier  *common.OperatorVerifier
	now               func() time.Time
}

func NewClosureDomain(
	accountRepo repository.AccountRepository,
	referralRepo repository.ReferralRepository,
	claimRepo repository.ClaimRepository,
	weeklyRecordRepo repository.WeeklyRecordRepository,
	monthlyRecordRepo repository.MonthlyRecordRepository,
	weekCounterRepo repository.WeekCounterRepository,
	leaderboard statistic.Leaderboard,
	publisher pubsub.Publisher,
	operatorVerifier *common.OperatorVerifier,
) *closureDomain {
	return &closureDomain{
		accountRepo:       accountRepo,
		referralRepo:      referralRepo,
		claimRepo:         claimRepo,
		weeklyRecordRepo:  weeklyRecordRepo,
		monthlyRecordRepo: monthlyRecordRepo,
		weekCounterRepo:   weekCounterRepo,
		weekCounter:       NewWeekCounter(weekCounterRepo),
		leaderboard:       leaderboard,
		publisher:         publisher,
		operatorVerifier:  operatorVerifier,
		now:               time.Now,
	}
}

func (d *closureDomain) GetCurrentCycle(
	ctx context.Context, req *model.GetCurrentCycleRequest,
) (*model.GetCurrentCycleResponse, error) {
	counter, err := d.weekCounter.Current(ctx)
	if err != nil {
		return nil, err
	}

	return &model.GetCurrentCycleResponse{Cycle: counter.Cycle, StartedAt: counter.StartedAt}, nil
}

// ResetCycle sets the counter back to 1 without touching any record.
func (d *closureDomain) ResetCycle(
	ctx context.Context, req *model.ResetCycleRequest,
) (*model.ResetCycleResponse, error) {
	if err := d.verifyOperator(ctx, req.OperatorID); err != nil {
		return nil, err
	}

	if !d.mutex.TryLock() {
		return nil, errorx.New(errorx.Unavailable, "A closure is running, try again later")
	}
	defer d.mutex.Unlock()

	cycle, err := d.weekCounter.Reset(ctx)
	if err != nil {
		return nil, err
	}

	xcontext.Logger(ctx).Infof("Week counter is reset to %d by %d", cycle, req.OperatorID)
	return &model.ResetCycleResponse{Cycle: cycle}, nil
}

func (d *closureDomain) CloseWeek(
	ctx context.Context, req *model.CloseWeekRequest,
) (*model.CloseWeekResponse, error) {
	if err := d.verifyOperator(ctx, req.OperatorID); err != nil {
		return nil, err
	}

	if !d.mutex.TryLock() {
		common.Inc(common.ClosureTotal, closureKindWeek, "busy")
		return nil, errorx.New(errorx.Unavailable, "Another closure is running, try again later")
	}
	defer d.mutex.Unlock()

	start := time.Now()
	resp, claims, err := d.closeWeek(ctx)
	d.observe(closureKindWeek, start, err)
	if err != nil {
		return nil, err
	}

	resp.RunID = uuid.NewString()
	resp.Ranking = d.rankClaims(ctx, claims)
	xcontext.Logger(ctx).Infof("Week %d is closed with %d claims, run %s",
		resp.Cycle, len(resp.Ranking), resp.RunID)

	if err := d.leaderboard.Invalidate(ctx); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate leaderboard: %v", err)
	}

	publishEvent(ctx, d.publisher, common.TopicWeekClosed, resp.RunID, model.ClosureEvent{
		RunID:    resp.RunID,
		Kind:     closureKindWeek,
		Label:    strconv.Itoa(resp.Cycle),
		ClosedAt: resp.ClosedAt,
		Ranking:  resp.Ranking,
	})

	return resp, nil
}

// closeWeek archives the claims of the current cycle and moves to the next
// one. Nothing is applied unless every step succeeds.
func (d *closureDomain) closeWeek(
	ctx context.Context,
) (*model.CloseWeekResponse, []entity.CurrentCycleClaim, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	counter, err := d.weekCounterRepo.GetForUpdate(ctx)
	if err != nil {
		return nil, nil, closureError(ctx, closureKindWeek, "lock week counter", err)
	}

	claims, err := d.claimRepo.GetAll(ctx)
	if err != nil {
		return nil, nil, closureError(ctx, closureKindWeek, "snapshot current claims", err)
	}

	if len(claims) == 0 {
		return nil, nil, errorx.New(errorx.NothingToArchive, "There is no claim to archive in week %d", counter.Cycle)
	}

	records := []entity.WeeklyRecord{}
	for _, c := range claims {
		records = append(records, entity.WeeklyRecord{
			SnowFlakeBase:   entity.SnowFlakeBase{ID: idutil.NewID()},
			Cycle:           counter.Cycle,
			AccountID:       c.AccountID,
			Destination:     c.Destination,
			Credential:      c.Credential,
			QualifyingCount: c.QualifyingCount,
			SubmittedAt:     c.SubmittedAt,
		})
	}

	if err := d.weeklyRecordRepo.CreateMany(ctx, records); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, closureError(ctx, closureKindWeek,
				"archive claims, week "+strconv.Itoa(counter.Cycle)+" is already archived", err)
		}

		return nil, nil, closureError(ctx, closureKindWeek, "archive claims", err)
	}

	if _, err := d.referralRepo.AdvanceStatus(ctx,
		[]entity.ReferralStatus{entity.ReferralStatusNew}, entity.ReferralStatusCounted); err != nil {
		return nil, nil, closureError(ctx, closureKindWeek, "mark referrals counted", err)
	}

	if _, err := d.claimRepo.DeleteAll(ctx); err != nil {
		return nil, nil, closureError(ctx, closureKindWeek, "clear current claims", err)
	}

	next, err := d.weekCounter.Advance(ctx)
	if err != nil {
		return nil, nil, closureError(ctx, closureKindWeek, "advance week counter", err)
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, nil, closureError(ctx, closureKindWeek, "commit", err)
	}

	return &model.CloseWeekResponse{
		Cycle:     counter.Cycle,
		NextCycle: next,
		ClosedAt:  d.now(),
	}, claims, nil
}

func (d *closureDomain) CloseMonth(
	ctx context.Context, req *model.CloseMonthRequest,
) (*model.CloseMonthResponse, error) {
	if err := d.verifyOperator(ctx, req.OperatorID); err != nil {
		return nil, err
	}

	if !d.mutex.TryLock() {
		common.Inc(common.ClosureTotal, closureKindMonth, "busy")
		return nil, errorx.New(errorx.Unavailable, "Another closure is running, try again later")
	}
	defer d.mutex.Unlock()

	start := time.Now()
	resp, totals, err := d.closeMonth(ctx)
	d.observe(closureKindMonth, start, err)
	if err != nil {
		return nil, err
	}

	resp.RunID = uuid.NewString()
	resp.Ranking = d.rankTotals(ctx, totals)
	xcontext.Logger(ctx).Infof("Month %s is closed with %d accounts, run %s",
		resp.Period, len(resp.Ranking), resp.RunID)

	if err := d.leaderboard.Invalidate(ctx); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate leaderboard: %v", err)
	}

	publishEvent(ctx, d.publisher, common.TopicMonthClosed, resp.RunID, model.ClosureEvent{
		RunID:    resp.RunID,
		Kind:     closureKindMonth,
		Label:    resp.Period,
		ClosedAt: resp.ClosedAt,
		Ranking:  resp.Ranking,
	})

	return resp, nil
}

func (d *closureDomain) closeMonth(
	ctx context.Context,
) (*model.CloseMonthResponse, []entity.MonthlyRecord, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if _, err := d.weekCounterRepo.GetForUpdate(ctx); err != nil {
		return nil, nil, closureError(ctx, closureKindMonth, "lock week counter", err)
	}

	aggregates, err := d.weeklyRecordRepo.Aggregate(ctx)
	if err != nil {
		return nil, nil, closureError(ctx, closureKindMonth, "aggregate weekly records", err)
	}

	if len(aggregates) == 0 {
		return nil, nil, errorx.New(errorx.NothingToArchive, "There is no weekly record to archive")
	}

	closedAt := d.now()
	period := common.PeriodLabel(closedAt)
	totals := mergeAggregates(aggregates)
	for i := range totals {
		totals[i].ID = idutil.NewID()
		totals[i].Period = period
	}

	if err := d.monthlyRecordRepo.ReplacePeriod(ctx, period, totals); err != nil {
		return nil, nil, closureError(ctx, closureKindMonth, "replace monthly records", err)
	}

	if _, err := d.weeklyRecordRepo.DeleteAll(ctx); err != nil {
		return nil, nil, closureError(ctx, closureKindMonth, "clear weekly records", err)
	}

	if _, err := d.claimRepo.DeleteAll(ctx); err != nil {
		return nil, nil, closureError(ctx, closureKindMonth, "clear current claims", err)
	}

	if _, err := d.referralRepo.AdvanceStatus(ctx,
		[]entity.ReferralStatus{entity.ReferralStatusNew, entity.ReferralStatusCounted},
		entity.ReferralStatusEnded); err != nil {
		return nil, nil, closureError(ctx, closureKindMonth, "end referrals", err)
	}

	if _, err := d.weekCounter.Reset(ctx); err != nil {
		return nil, nil, closureError(ctx, closureKindMonth, "reset week counter", err)
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return nil, nil, closureError(ctx, closureKindMonth, "commit", err)
	}

	return &model.CloseMonthResponse{Period: period, ClosedAt: closedAt}, totals, nil
}

// mergeAggregates folds the (account, destination, credential) groups into
// one row per account. The destination and credential of the newest group
// win, counts are summed. The result is ranked by total.
func mergeAggregates(aggregates []repository.WeeklyAggregate) []entity.MonthlyRecord {
	type merged struct {
		record    entity.MonthlyRecord
		lastCycle int
	}

	byAccount := map[int64]*merged{}
	order := []int64{}
	for _, a := range aggregates {
		m, ok := byAccount[a.AccountID]
		if !ok {
			m = &merged{
				record:    entity.MonthlyRecord{AccountID: a.AccountID},
				lastCycle: -1,
			}
			byAccount[a.AccountID] = m
			order = append(order, a.AccountID)
		}

		m.record.QualifyingCount += a.Total
		if a.LastCycle > m.lastCycle {
			m.lastCycle = a.LastCycle
			m.record.Destination = a.Destination
			m.record.Credential = a.Credential
		}
	}

	result := []entity.MonthlyRecord{}
	for _, id := range order {
		result = append(result, byAccount[id].record)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].QualifyingCount != result[j].QualifyingCount {
			return result[i].QualifyingCount > result[j].QualifyingCount
		}

		return result[i].AccountID < result[j].AccountID
	})

	return result
}

func (d *closureDomain) rankClaims(ctx context.Context, claims []entity.CurrentCycleClaim) []model.RankedClaim {
	ids := []int64{}
	for _, c := range claims {
		ids = append(ids, c.AccountID)
	}

	names := d.names(ctx, ids)
	result := []model.RankedClaim{}
	for i, c := range claims {
		result = append(result, model.RankedClaim{
			Rank:        i + 1,
			AccountID:   c.AccountID,
			Name:        names[c.AccountID],
			Destination: c.Destination,
			Credential:  c.Credential,
			Count:       c.QualifyingCount,
		})
	}

	return result
}

func (d *closureDomain) rankTotals(ctx context.Context, totals []entity.MonthlyRecord) []model.RankedClaim {
	ids := []int64{}
	for _, t := range totals {
		ids = append(ids, t.AccountID)
	}

	names := d.names(ctx, ids)
	result := []model.RankedClaim{}
	for i, t := range totals {
		result = append(result, model.RankedClaim{
			Rank:        i + 1,
			AccountID:   t.AccountID,
			Name:        names[t.AccountID],
			Destination: t.Destination,
			Credential:  t.Credential,
			Count:       t.QualifyingCount,
		})
	}

	return result
}

// names never fails, the closure is already committed. Unknown accounts are
// shown by id.
func (d *closureDomain) names(ctx context.Context, ids []int64) map[int64]string {
	accounts, err := d.accountRepo.GetByIDs(ctx, ids)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get accounts of closure ranking: %v", err)
	}

	names := displayNames(accounts)
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			names[id] = strconv.FormatInt(id, 10)
		}
	}

	return names
}

func (d *closureDomain) verifyOperator(ctx context.Context, operatorID int64) error {
	if err := d.operatorVerifier.Verify(ctx, operatorID); err != nil {
		xcontext.Logger(ctx).Debugf("Permission denied for %d: %v", operatorID, err)
		return errorx.New(errorx.PermissionDenied, "Only operators can do this")
	}

	return nil
}

func (d *closureDomain) observe(kind string, start time.Time, err error) {
	result := "ok"
	switch {
	case errorx.Is(err, errorx.NothingToArchive):
		result = "nothing_to_archive"
	case err != nil:
		result = "error"
	}

	common.Inc(common.ClosureTotal, kind, result)
	if h, ok := common.PromHistograms[common.ClosureDurationSecond]; ok {
		h.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

func closureError(ctx context.Context, kind, step string, err error) error {
	xcontext.Logger(ctx).Errorf("Cannot %s in %s closure: %v", step, kind, err)
	return errorx.New(errorx.Internal, "Closing the %s failed at step: %s", kind, step)
}
