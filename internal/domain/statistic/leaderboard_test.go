package statistic

import (
	"errors"
	"testing"

	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/entity"
	"github.com/questx-lab/referral/internal/repository"
	"github.com/questx-lab/referral/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func TestLeaderboard(t *testing.T) {
	ctx := testutil.MockContext()
	redisClient := testutil.NewMockRedisClient()
	board := New(repository.NewReferralRepository(), redisClient)

	for _, id := range []int64{1, 2} {
		_, err := testutil.SampleAccount(ctx, id, nil)
		require.NoError(t, err)
	}

	_, err := testutil.SampleEdge(ctx, 1, 10, entity.ReferralStatusNew, true)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 2, 20, entity.ReferralStatusCounted, true)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 2, 21, entity.ReferralStatusNew, true)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 2, 22, entity.ReferralStatusNew, false)
	require.NoError(t, err)

	// Nothing is cached yet, so changes are not tracked.
	require.NoError(t, board.ChangeCount(ctx, 1, 1))
	require.Equal(t, 0, redisClient.Calls["ZIncrBy"])

	top, err := board.GetTop(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []repository.ReferrerCount{
		{ReferrerID: 2, Total: 2},
		{ReferrerID: 1, Total: 1},
	}, top)
	require.Equal(t, leaderboardTTL, redisClient.TTLSet[common.RedisKeyLeaderboard()])

	require.NoError(t, board.ChangeCount(ctx, 1, 2))
	top, err = board.GetTop(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []repository.ReferrerCount{{ReferrerID: 1, Total: 3}}, top)

	require.NoError(t, board.Invalidate(ctx))
	_, ok := redisClient.Score(common.RedisKeyLeaderboard(), "1")
	require.False(t, ok)

	top, err = board.GetTop(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(2), top[0].Total)
}

func TestLeaderboard_FallbackToDatabase(t *testing.T) {
	ctx := testutil.MockContext()
	redisClient := testutil.NewMockRedisClient()
	redisClient.Err = errors.New("connection refused")

	_, err := testutil.SampleAccount(ctx, 1, nil)
	require.NoError(t, err)
	_, err = testutil.SampleEdge(ctx, 1, 10, entity.ReferralStatusNew, true)
	require.NoError(t, err)

	for _, board := range []Leaderboard{
		New(repository.NewReferralRepository(), redisClient),
		New(repository.NewReferralRepository(), nil),
	} {
		top, err := board.GetTop(ctx, 3)
		require.NoError(t, err)
		require.Equal(t, []repository.ReferrerCount{{ReferrerID: 1, Total: 1}}, top)
	}
}
