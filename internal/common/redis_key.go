package common

// RedisKeyLeaderboard is the sorted set of referrer id to the number of their
// genuine edges which are not ended.
func RedisKeyLeaderboard() string {
	return "referral:leaderboard"
}
