package statistic

import (
	"context"
	"strconv"
	"time"

	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/xcontext"
	"github.com/questx-lab/referral/pkg/xredis"
	"github.com/redis/go-redis/v9"
)

// The cached board expires so a missed increment cannot drift forever.
const leaderboardTTL = 24 * time.Hour

type Leaderboard interface {
	GetTop(ctx context.Context, limit int) ([]repository.ReferrerCount, error)
	ChangeCount(ctx context.Context, referrerID int64, delta int64) error
	Invalidate(ctx context.Context) error
}

type leaderboard struct {
	referralRepo repository.ReferralRepository
	redisClient  xredis.Client
}

// New returns a leaderboard cached in redis. With a nil redisClient every
// call goes to the database.
func New(referralRepo repository.ReferralRepository, redisClient xredis.Client) *leaderboard {
	return &leaderboard{referralRepo: referralRepo, redisClient: redisClient}
}

func (l *leaderboard) GetTop(ctx context.Context, limit int) ([]repository.ReferrerCount, error) {
	if l.redisClient == nil {
		return l.referralRepo.GetTopReferrers(ctx, limit)
	}

	key := common.RedisKeyLeaderboard()
	ok, err := l.redisClient.Exist(ctx, key)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot call exist redis, fallback to database: %v", err)
		return l.referralRepo.GetTopReferrers(ctx, limit)
	}

	// If the key didn't exist in redis, load it from database.
	if !ok {
		if err := l.loadLeaderboardFromDB(ctx); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot load leaderboard to redis, fallback to database: %v", err)
			return l.referralRepo.GetTopReferrers(ctx, limit)
		}
	}

	results, err := l.redisClient.ZRevRangeWithScores(ctx, key, 0, limit)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get revrange redis, fallback to database: %v", err)
		return l.referralRepo.GetTopReferrers(ctx, limit)
	}

	leaderboard := []repository.ReferrerCount{}
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}

		referrerID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Invalid leaderboard member %q: %v", member, err)
			continue
		}

		if z.Score <= 0 {
			continue
		}

		leaderboard = append(leaderboard, repository.ReferrerCount{
			ReferrerID: referrerID,
			Total:      int64(z.Score),
		})
	}

	return leaderboard, nil
}

// ChangeCount moves the score of referrerID by delta. A board which is not
// cached is left alone, it will be loaded fresh on the next read.
func (l *leaderboard) ChangeCount(ctx context.Context, referrerID int64, delta int64) error {
	if l.redisClient == nil {
		return nil
	}

	key := common.RedisKeyLeaderboard()
	ok, err := l.redisClient.Exist(ctx, key)
	if err != nil {
		return err
	}

	if !ok {
		return nil
	}

	return l.redisClient.ZIncrBy(ctx, key, delta, strconv.FormatInt(referrerID, 10))
}

func (l *leaderboard) Invalidate(ctx context.Context) error {
	if l.redisClient == nil {
		return nil
	}

	return l.redisClient.Del(ctx, common.RedisKeyLeaderboard())
}

func (l *leaderboard) loadLeaderboardFromDB(ctx context.Context) error {
	counts, err := l.referralRepo.GetTopReferrers(ctx, 0)
	if err != nil {
		return err
	}

	if len(counts) == 0 {
		return nil
	}

	members := []redis.Z{}
	for _, c := range counts {
		members = append(members, redis.Z{
			Score:  float64(c.Total),
			Member: strconv.FormatInt(c.ReferrerID, 10),
		})
	}

	key := common.RedisKeyLeaderboard()
	if err := l.redisClient.ZAdd(ctx, key, members...); err != nil {
		return err
	}

	return l.redisClient.Expire(ctx, key, leaderboardTTL)
}
