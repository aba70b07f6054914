package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type memoryCacheRepo struct {
	items    map[string][]byte
	ttls     map[string]time.Duration
	patterns []string
	getErr   error
	delErr   error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return m.delErr
}

func TestCacheServiceRoundTripRecordsMetrics(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var miss map[string]int
	assert.False(t, cache.Get(ctx, "k", &miss))

	cache.Set(ctx, "k", map[string]int{"score": 77}, 0)
	assert.Equal(t, time.Minute, repo.ttls["k"])

	var hit map[string]int
	require.True(t, cache.Get(ctx, "k", &hit))
	assert.Equal(t, 77, hit["score"])

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceTreatsErrorsAsMisses(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("connection refused")
	cache := NewCacheService(repo, nil, 0, nil, true)

	var dest map[string]int
	assert.False(t, cache.Get(context.Background(), "k", &dest))
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)

	cache.Set(context.Background(), "k", 1, 0)
	assert.Empty(t, repo.items)
	assert.NoError(t, cache.Invalidate(context.Background(), "*"))
	assert.Empty(t, repo.patterns)
}

func TestCacheServiceInvalidateWrapsFailure(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.delErr = errors.New("scan failed")
	cache := NewCacheService(repo, nil, 0, nil, true)

	err := cache.Invalidate(context.Background(), RosterCacheKey(""))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"timetable:roster:all"}, repo.patterns)
}
