package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient keeps sorted sets in memory. Setting Err makes every call
// fail with it.
type MockRedisClient struct {
	Err error

	mutex  sync.Mutex
	zsets  map[string]map[string]float64
	Calls  map[string]int
	TTLSet map[string]time.Duration
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		zsets:  map[string]map[string]float64{},
		Calls:  map[string]int{},
		TTLSet: map[string]time.Duration{},
	}
}

func (m *MockRedisClient) call(name string) error {
	m.Calls[name]++
	return m.Err
}

func (m *MockRedisClient) Exist(ctx context.Context, key string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.call("Exist"); err != nil {
		return false, err
	}

	_, ok := m.zsets[key]
	return ok, nil
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.call("Del"); err != nil {
		return err
	}

	for _, key := range keys {
		delete(m.zsets, key)
	}

	return nil
}

func (m *MockRedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.call("Expire"); err != nil {
		return err
	}

	m.TTLSet[key] = ttl
	return nil
}

func (m *MockRedisClient) ZAdd(ctx context.Context, key string, z ...redis.Z) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.call("ZAdd"); err != nil {
		return err
	}

	set, ok := m.zsets[key]
	if !ok {
		set = map[string]float64{}
		m.zsets[key] = set
	}

	for _, item := range z {
		set[item.Member.(string)] = item.Score
	}

	return nil
}

func (m *MockRedisClient) ZIncrBy(ctx context.Context, key string, incr int64, member string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.call("ZIncrBy"); err != nil {
		return err
	}

	set, ok := m.zsets[key]
	if !ok {
		set = map[string]float64{}
		m.zsets[key] = set
	}

	set[member] += float64(incr)
	return nil
}

func (m *MockRedisClient) ZRevRangeWithScores(
	ctx context.Context, key string, offset, limit int,
) ([]redis.Z, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.call("ZRevRangeWithScores"); err != nil {
		return nil, err
	}

	sorted := m.sorted(key)
	if offset >= len(sorted) {
		return []redis.Z{}, nil
	}

	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}

	return sorted[offset:end], nil
}

func (m *MockRedisClient) ZRevRank(ctx context.Context, key string, member string) (uint64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.call("ZRevRank"); err != nil {
		return 0, err
	}

	for i, z := range m.sorted(key) {
		if z.Member.(string) == member {
			return uint64(i), nil
		}
	}

	return 0, redis.Nil
}

// Score returns the score of member, used by assertions.
func (m *MockRedisClient) Score(key, member string) (float64, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	set, ok := m.zsets[key]
	if !ok {
		return 0, false
	}

	score, ok := set[member]
	return score, ok
}

// sorted mimics redis ordering: score descending, then member descending.
func (m *MockRedisClient) sorted(key string) []redis.Z {
	result := []redis.Z{}
	for member, score := range m.zsets[key] {
		result = append(result, redis.Z{Score: score, Member: member})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Member.(string) > result[j].Member.(string)
	})

	return result
}
