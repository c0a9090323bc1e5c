package domain

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/questx-lab/referral/internal/client"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/domain/statistic"
	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/errorx"
	"github.com/questx-lab/referral/pkg/idutil"
	"github.com/questx-lab/referral/pkg/pubsub"
	"github.com/questx-lab/referral/pkg/retry"
	"github.com/questx-lab/referral/pkg/xcontext"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type ReferralDomain interface {
	RecordReferral(context.Context, *model.RecordReferralRequest) (*model.RecordReferralResponse, error)
	Refer(context.Context, *model.ReferRequest) (*model.ReferResponse, error)
	CountQualifying(ctx context.Context, accountID int64) (int64, error)
	Qualifies(ctx context.Context, accountID int64) (bool, error)
	RevalidateEdge(ctx context.Context, edge *entity.ReferralEdge) (bool, error)
	RevalidateReferrals(context.Context, *model.RevalidateReferralsRequest) (*model.RevalidateReferralsResponse, error)
	GetMyStats(context.Context, *model.GetMyStatsRequest) (*model.GetMyStatsResponse, error)
	GetLeaderboard(context.Context, *model.GetLeaderboardRequest) (*model.GetLeaderboardResponse, error)
	GetEligibleAccounts(context.Context, *model.GetEligibleAccountsRequest) (*model.GetEligibleAccountsResponse, error)
}

type referralDomain struct {
	accountRepo      repository.AccountRepository
	referralRepo     repository.ReferralRepository
	membershipOracle client.MembershipOracle
	realityHeuristic RealityHeuristic
	leaderboard      statistic.Leaderboard
	publisher        pubsub.Publisher
	operatorVerifier *common.OperatorVerifier
}

func NewReferralDomain(
	accountRepo repository.AccountRepository,
	referralRepo repository.ReferralRepository,
	membershipOracle client.MembershipOracle,
	realityHeuristic RealityHeuristic,
	leaderboard statistic.Leaderboard,
	publisher pubsub.Publisher,
	operatorVerifier *common.OperatorVerifier,
) *referralDomain {
	return &referralDomain{
		accountRepo:      accountRepo,
		referralRepo:     referralRepo,
		membershipOracle: membershipOracle,
		realityHeuristic: realityHeuristic,
		leaderboard:      leaderboard,
		publisher:        publisher,
		operatorVerifier: operatorVerifier,
	}
}

func (d *referralDomain) RecordReferral(
	ctx context.Context, req *model.RecordReferralRequest,
) (*model.RecordReferralResponse, error) {
	edge, referrer, err := d.recordReferral(ctx, req)
	if err != nil {
		common.Inc(common.ReferralRecordedTotal, referralResult(err))
		return nil, err
	}

	common.Inc(common.ReferralRecordedTotal, "recorded")

	if edge.IsGenuine {
		if err := d.leaderboard.ChangeCount(ctx, edge.ReferrerID, 1); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot increase leaderboard of %d: %v", edge.ReferrerID, err)
		}
	}

	referred := accountFromSnapshot(req.Referred)
	publishEvent(ctx, d.publisher, common.TopicReferralRecorded,
		strconv.FormatInt(edge.ReferrerID, 10), model.ReferralRecordedEvent{
			ReferrerID:   referrer.ID,
			ReferrerName: referrer.DisplayName(),
			ReferredID:   referred.ID,
			ReferredName: referred.DisplayName(),
			IsGenuine:    edge.IsGenuine,
			RecordedAt:   edge.CreatedAt,
		})

	return &model.RecordReferralResponse{Edge: convertReferralEdge(edge)}, nil
}

func (d *referralDomain) recordReferral(
	ctx context.Context, req *model.RecordReferralRequest,
) (*entity.ReferralEdge, *entity.Account, error) {
	if req.Referred.ID == 0 || req.ReferrerID == 0 {
		return nil, nil, errorx.New(errorx.BadRequest, "Missing referrer or referred account")
	}

	if req.ReferrerID == req.Referred.ID {
		return nil, nil, errorx.New(errorx.SelfReferral, "Cannot refer yourself")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	_, err := d.referralRepo.GetByReferredID(ctx, req.Referred.ID)
	if err == nil {
		return nil, nil, errorx.New(errorx.AlreadyReferred, "This account was already referred")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get referral edge of %d: %v", req.Referred.ID, err)
		return nil, nil, errorx.Unknown
	}

	referrer, err := d.accountRepo.Get(ctx, req.ReferrerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errorx.New(errorx.ReferrerUnknown, "Not found referrer")
		}

		xcontext.Logger(ctx).Errorf("Cannot get referrer %d: %v", req.ReferrerID, err)
		return nil, nil, errorx.Unknown
	}

	if referrer.Departed {
		return nil, nil, errorx.New(errorx.ReferrerUnknown, "Referrer has left the channel")
	}

	if err := d.accountRepo.Upsert(ctx, accountFromSnapshot(req.Referred)); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upsert referred account %d: %v", req.Referred.ID, err)
		return nil, nil, errorx.Unknown
	}

	edge := &entity.ReferralEdge{
		SnowFlakeBase:  entity.SnowFlakeBase{ID: idutil.NewID()},
		ReferrerID:     req.ReferrerID,
		ReferredID:     req.Referred.ID,
		ReferredHandle: req.Referred.Handle,
		Status:         entity.ReferralStatusNew,
		IsGenuine:      req.IsGenuine,
	}

	if err := d.referralRepo.Create(ctx, edge); err != nil {
		// A concurrent referral of the same account won the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, errorx.New(errorx.AlreadyReferred, "This account was already referred")
		}

		xcontext.Logger(ctx).Errorf("Cannot create referral edge: %v", err)
		return nil, nil, errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, errorx.New(errorx.AlreadyReferred, "This account was already referred")
		}

		xcontext.Logger(ctx).Errorf("Cannot commit referral transaction: %v", err)
		return nil, nil, errorx.Unknown
	}

	return edge, referrer, nil
}

// Refer handles a referral arriving through a referral link. The referrer must
// still be in the channel and the referred account must be new to the bot.
func (d *referralDomain) Refer(
	ctx context.Context, req *model.ReferRequest,
) (*model.ReferResponse, error) {
	if req.ReferrerID == req.Referred.ID {
		common.Inc(common.ReferralRecordedTotal, "self_referral")
		return nil, errorx.New(errorx.SelfReferral, "Cannot refer yourself")
	}

	_, err := d.accountRepo.Get(ctx, req.Referred.ID)
	if err == nil {
		common.Inc(common.ReferralRecordedTotal, "already_referred")
		return nil, errorx.New(errorx.AlreadyReferred, "This account is already registered")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get account %d: %v", req.Referred.ID, err)
		return nil, errorx.Unknown
	}

	channelID := xcontext.Configs(ctx).Referral.ChannelID
	isMember, err := d.membershipOracle.IsMember(ctx, channelID, req.ReferrerID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot check membership of referrer %d: %v", req.ReferrerID, err)
		isMember = false
	}

	if !isMember {
		common.Inc(common.ReferralRecordedTotal, "referrer_unknown")
		return nil, errorx.New(errorx.ReferrerUnknown, "Referrer is not a member of the channel")
	}

	recordReq := &model.RecordReferralRequest{
		ReferrerID: req.ReferrerID,
		Referred:   req.Referred,
		IsGenuine:  d.realityHeuristic.IsGenuine(ctx, req.Referred),
	}

	var resp *model.RecordReferralResponse
	policy := retry.Policy{
		Attempts:  xcontext.Configs(ctx).Retry.Attempts,
		BaseDelay: xcontext.Configs(ctx).Retry.BaseDelay,
	}

	err = retry.Do(ctx, policy, func() error {
		var err error
		resp, err = d.RecordReferral(ctx, recordReq)
		if err != nil && !errorx.Is(err, errorx.Unknown.Code) {
			return retry.Permanent(err)
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	return &model.ReferResponse{Edge: resp.Edge}, nil
}

func (d *referralDomain) CountQualifying(ctx context.Context, accountID int64) (int64, error) {
	count, err := d.referralRepo.CountQualifying(ctx, accountID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count qualifying referrals of %d: %v", accountID, err)
		return 0, errorx.Unknown
	}

	return count, nil
}

func (d *referralDomain) Qualifies(ctx context.Context, accountID int64) (bool, error) {
	count, err := d.CountQualifying(ctx, accountID)
	if err != nil {
		return false, err
	}

	return qualifies(ctx, count), nil
}

func qualifies(ctx context.Context, count int64) bool {
	return count > 0 && count >= int64(xcontext.Configs(ctx).Referral.MinReferralThreshold)
}

// RevalidateEdge withdraws the genuineness of an edge whose referred account
// is no longer a channel member. A failed lookup counts as not a member. It
// reports whether the edge was withdrawn by this call.
func (d *referralDomain) RevalidateEdge(ctx context.Context, edge *entity.ReferralEdge) (bool, error) {
	if !edge.IsGenuine {
		return false, nil
	}

	channelID := xcontext.Configs(ctx).Referral.ChannelID
	isMember, err := d.membershipOracle.IsMember(ctx, channelID, edge.ReferredID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot check membership of %d, treat as left: %v", edge.ReferredID, err)
		isMember = false
	}

	if isMember {
		return false, nil
	}

	withdrawn, err := d.referralRepo.MarkNotGenuine(ctx, edge.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark referral edge %d not genuine: %v", edge.ID, err)
		return false, errorx.Unknown
	}

	if withdrawn {
		edge.IsGenuine = false
		if edge.Status != entity.ReferralStatusEnded {
			if err := d.leaderboard.ChangeCount(ctx, edge.ReferrerID, -1); err != nil {
				xcontext.Logger(ctx).Warnf("Cannot decrease leaderboard of %d: %v", edge.ReferrerID, err)
			}
		}
	}

	return withdrawn, nil
}

// RevalidateReferrals checks the qualifying edges of one referrer, or every
// genuine edge which is not ended when ReferrerID is zero.
func (d *referralDomain) RevalidateReferrals(
	ctx context.Context, req *model.RevalidateReferralsRequest,
) (*model.RevalidateReferralsResponse, error) {
	resp := &model.RevalidateReferralsResponse{}
	if req.ReferrerID != 0 {
		edges, err := d.referralRepo.GetQualifying(ctx, req.ReferrerID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get qualifying referrals of %d: %v", req.ReferrerID, err)
			return nil, errorx.Unknown
		}

		withdrawn, err := d.revalidateEdges(ctx, edges)
		if err != nil {
			return nil, err
		}

		resp.Checked, resp.Withdrawn = len(edges), withdrawn
		return resp, nil
	}

	afterID := int64(0)
	for {
		edges, err := d.referralRepo.GetGenuineActive(ctx, afterID, common.RevalidationBatch)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get genuine referrals after %d: %v", afterID, err)
			return nil, errorx.Unknown
		}

		if len(edges) == 0 {
			return resp, nil
		}

		withdrawn, err := d.revalidateEdges(ctx, edges)
		if err != nil {
			return nil, err
		}

		resp.Checked += len(edges)
		resp.Withdrawn += withdrawn
		afterID = edges[len(edges)-1].ID

		if len(edges) < common.RevalidationBatch {
			return resp, nil
		}
	}
}

func (d *referralDomain) revalidateEdges(ctx context.Context, edges []entity.ReferralEdge) (int, error) {
	workers := xcontext.Configs(ctx).Referral.RevalidateWorkers
	if workers <= 0 {
		workers = 1
	}

	withdrawn := make([]bool, len(edges))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range edges {
		i := i
		g.Go(func() error {
			var err error
			withdrawn[i], err = d.RevalidateEdge(gctx, &edges[i])
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, w := range withdrawn {
		if w {
			total++
		}
	}

	return total, nil
}

func (d *referralDomain) GetMyStats(
	ctx context.Context, req *model.GetMyStatsRequest,
) (*model.GetMyStatsResponse, error) {
	qualifying, err := d.CountQualifying(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	newCount, err := d.referralRepo.CountByStatus(ctx, req.AccountID, entity.ReferralStatusNew)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count new referrals of %d: %v", req.AccountID, err)
		return nil, errorx.Unknown
	}

	rank := int64(0)
	if newCount > 0 {
		above, err := d.referralRepo.CountReferrersAbove(ctx, entity.ReferralStatusNew, newCount)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count referrers above %d: %v", newCount, err)
			return nil, errorx.Unknown
		}

		rank = above + 1
	}

	return &model.GetMyStatsResponse{
		QualifyingCount: qualifying,
		NewCount:        newCount,
		Rank:            rank,
		Threshold:       xcontext.Configs(ctx).Referral.MinReferralThreshold,
		Qualified:       qualifies(ctx, qualifying),
	}, nil
}

func (d *referralDomain) GetLeaderboard(
	ctx context.Context, req *model.GetLeaderboardRequest,
) (*model.GetLeaderboardResponse, error) {
	top, err := d.leaderboard.GetTop(ctx, common.LeaderboardSize)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get leaderboard: %v", err)
		return nil, errorx.Unknown
	}

	ids := []int64{}
	for _, t := range top {
		ids = append(ids, t.ReferrerID)
	}

	accounts, err := d.accountRepo.GetByIDs(ctx, ids)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get leaderboard accounts: %v", err)
		return nil, errorx.Unknown
	}

	names := displayNames(accounts)
	entries := []model.LeaderboardEntry{}
	for i, t := range top {
		name, ok := names[t.ReferrerID]
		if !ok {
			name = strconv.FormatInt(t.ReferrerID, 10)
		}

		entries = append(entries, model.LeaderboardEntry{
			Rank:      i + 1,
			AccountID: t.ReferrerID,
			Name:      name,
			Count:     t.Total,
		})
	}

	return &model.GetLeaderboardResponse{Entries: entries}, nil
}

// GetEligibleAccounts lists the accounts which currently qualify for a claim.
func (d *referralDomain) GetEligibleAccounts(
	ctx context.Context, req *model.GetEligibleAccountsRequest,
) (*model.GetEligibleAccountsResponse, error) {
	if err := d.operatorVerifier.Verify(ctx, req.OperatorID); err != nil {
		xcontext.Logger(ctx).Debugf("Permission denied for %d: %v", req.OperatorID, err)
		return nil, errorx.New(errorx.PermissionDenied, "Only operators can do this")
	}

	threshold := int64(xcontext.Configs(ctx).Referral.MinReferralThreshold)
	if threshold < 1 {
		threshold = 1
	}

	counts, err := d.referralRepo.GetQualifyingReferrers(ctx, threshold)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get qualifying referrers: %v", err)
		return nil, errorx.Unknown
	}

	ids := []int64{}
	for _, c := range counts {
		ids = append(ids, c.ReferrerID)
	}

	accounts, err := d.accountRepo.GetByIDs(ctx, ids)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get eligible accounts: %v", err)
		return nil, errorx.Unknown
	}

	departed := map[int64]bool{}
	for _, a := range accounts {
		departed[a.ID] = a.Departed
	}

	names := displayNames(accounts)
	result := []model.EligibleAccount{}
	for _, c := range counts {
		if departed[c.ReferrerID] {
			continue
		}

		result = append(result, model.EligibleAccount{
			AccountID:       c.ReferrerID,
			Name:            names[c.ReferrerID],
			QualifyingCount: c.Total,
		})
	}

	return &model.GetEligibleAccountsResponse{Accounts: result}, nil
}

func referralResult(err error) string {
	var e errorx.Error
	if !errors.As(err, &e) {
		return "error"
	}

	switch e.Code {
	case errorx.SelfReferral:
		return "self_referral"
	case errorx.AlreadyReferred:
		return "already_referred"
	case errorx.ReferrerUnknown:
		return "referrer_unknown"
	case errorx.BadRequest:
		return "bad_request"
	}

	return "error"
}

// publishEvent is best-effort, the state change it reports is already
// committed.
func publishEvent(ctx context.Context, publisher pubsub.Publisher, topic, key string, event any) {
	if publisher == nil {
		return
	}

	b, err := json.Marshal(event)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal %s event: %v", topic, err)
		return
	}

	err = publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(key), Msg: b})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot publish %s event: %v", topic, err)
	}
}
