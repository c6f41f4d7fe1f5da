package repository

import (
	"context"
	"face-insight-api/model"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisQuotaStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQuotaStore(client), mr
}

var fiveADay = model.TierSpec{Name: "eagt/5 per day", Limit: 5, Window: 24 * time.Hour}

func TestRedisQuotaStore_AdmitsUpToLimit(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= fiveADay.Limit; i++ {
		adm, err := store.CheckAndConsume(ctx, "user:1", fiveADay, now)
		require.NoError(t, err)
		assert.True(t, adm.Admitted, "request %d should be admitted", i)
		assert.Equal(t, fiveADay.Limit-i, adm.Remaining)
		assert.WithinDuration(t, now.Add(24*time.Hour), adm.ResetAt, 0)
	}

	adm, err := store.CheckAndConsume(ctx, "user:1", fiveADay, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, adm.Admitted)
	assert.Equal(t, 0, adm.Remaining)

	rec, err := store.Get(ctx, "user:1", fiveADay.Name)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Used, "denied requests do not increment")
	assert.Equal(t, "user:1", rec.IdentityKey)
	assert.Equal(t, fiveADay.Name, rec.TierName)
}

func TestRedisQuotaStore_WindowRollover(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	tier := model.TierSpec{Name: "gs/2 per minute", Limit: 2, Window: time.Minute}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := store.CheckAndConsume(ctx, "ip:10.0.0.1", tier, now)
		require.NoError(t, err)
	}

	later := now.Add(time.Minute)
	adm, err := store.CheckAndConsume(ctx, "ip:10.0.0.1", tier, later)
	require.NoError(t, err)
	assert.True(t, adm.Admitted)
	assert.Equal(t, 1, adm.Remaining)
	assert.WithinDuration(t, later.Add(time.Minute), adm.ResetAt, 0)
}

func TestRedisQuotaStore_ConcurrentConsumersNeverOverAdmit(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	tier := model.TierSpec{Name: "gat/10 per day", Limit: 10, Window: 24 * time.Hour}
	now := time.Now()

	var admitted, denied int64
	var wg sync.WaitGroup
	for i := 0; i < 2*tier.Limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adm, err := store.CheckAndConsume(ctx, "user:9", tier, now)
			if !assert.NoError(t, err) {
				return
			}
			if adm.Admitted {
				atomic.AddInt64(&admitted, 1)
			} else {
				atomic.AddInt64(&denied, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(tier.Limit), admitted)
	assert.Equal(t, int64(tier.Limit), denied)
}

func TestRedisQuotaStore_SeparateKeys(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	tier := model.TierSpec{Name: "gs/1 per day", Limit: 1, Window: 24 * time.Hour}
	now := time.Now()

	a, err := store.CheckAndConsume(ctx, "user:1", tier, now)
	require.NoError(t, err)
	b, err := store.CheckAndConsume(ctx, "user:2", tier, now)
	require.NoError(t, err)

	assert.True(t, a.Admitted)
	assert.True(t, b.Admitted)
}

func TestRedisQuotaStore_ResetAndList(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := store.CheckAndConsume(ctx, "user:1", fiveADay, now)
	require.NoError(t, err)
	_, err = store.CheckAndConsume(ctx, "user:2", fiveADay, now)
	require.NoError(t, err)

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, store.Reset(ctx, "user:1", fiveADay.Name))
	assert.False(t, mr.Exists(quotaKey("user:1", fiveADay.Name)))
	assert.ErrorIs(t, store.Reset(ctx, "user:1", fiveADay.Name), ErrQuotaNotFound)

	_, err = store.Get(ctx, "user:1", fiveADay.Name)
	assert.ErrorIs(t, err, ErrQuotaNotFound)
}

func TestRedisQuotaStore_KeyExpiresWithWindow(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.CheckAndConsume(ctx, "user:1", fiveADay, time.Now())
	require.NoError(t, err)

	ttl := mr.TTL(quotaKey("user:1", fiveADay.Name))
	assert.Equal(t, 24*time.Hour, ttl)

	mr.FastForward(24 * time.Hour)
	_, err = store.Get(ctx, "user:1", fiveADay.Name)
	assert.ErrorIs(t, err, ErrQuotaNotFound)
}

func TestRedisQuotaStore_Unavailable(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	_, err := store.CheckAndConsume(context.Background(), "user:1", fiveADay, time.Now())
	assert.Error(t, err)
}
