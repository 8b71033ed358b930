package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"audient.app/internal/workhours"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestOrgConfigCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newFakeRedis()
	c := NewOrgConfigCache(r, 0)

	_, ok, err := c.Get(ctx, "org1")
	require.NoError(t, err)
	require.False(t, ok)

	cfg := workhours.Config{LoginTime: "08:00", LogoffTime: "17:00", Timezone: "Europe/Berlin"}
	require.NoError(t, c.Set(ctx, "org1", cfg))
	require.Equal(t, DefaultOrgConfigTTL, r.ttl["org_config:org1"])

	got, ok, err := c.Get(ctx, "org1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cfg, got)

	require.NoError(t, c.Invalidate(ctx, "org1"))
	_, ok, err = c.Get(ctx, "org1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOrgConfigCacheDropsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	r := newFakeRedis()
	r.data["org_config:org1"] = `{"login_time":"25:00","logoff_time":"18:00","timezone":"UTC"}`
	r.data["org_config:org2"] = `not json`
	c := NewOrgConfigCache(r, time.Minute)

	for _, id := range []string{"org1", "org2"} {
		_, ok, err := c.Get(ctx, id)
		require.NoError(t, err)
		require.False(t, ok)
		_, present := r.data["org_config:"+id]
		require.False(t, present)
	}
}

func TestOrgConfigCacheSurfacesBackendErrors(t *testing.T) {
	ctx := context.Background()
	r := newFakeRedis()
	r.err = errors.New("connection refused")
	c := NewOrgConfigCache(r, time.Minute)

	_, _, err := c.Get(ctx, "org1")
	require.ErrorIs(t, err, r.err)
	require.ErrorIs(t, c.Set(ctx, "org1", workhours.Default()), r.err)
	require.ErrorIs(t, c.Invalidate(ctx, "org1"), r.err)
}
