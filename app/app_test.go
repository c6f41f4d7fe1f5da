package app

import (
	"context"
	"encoding/json"
	"face-insight-api/clock"
	"face-insight-api/config"
	"face-insight-api/logger"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type noPredictor struct{}

func (noPredictor) Predict(context.Context, string, string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func testConfig(backend string) config.Config {
	var cfg config.Config
	cfg.JWT.SecretKey = "app-test-secret"
	cfg.JWT.Issuer = "face-insight-api"
	cfg.JWT.AccessTTL = time.Hour
	cfg.JWT.RefreshTTL = 24 * time.Hour
	cfg.JWT.ResetTTL = 15 * time.Minute
	cfg.Store.Timeout = time.Second
	cfg.Store.TokenRetention = 24 * time.Hour
	cfg.Quota.Backend = backend
	cfg.Quota.Trial = config.TierConfig{Name: "trial 5 per day", Limit: 5, Window: 24 * time.Hour}
	return cfg
}

func TestBuild(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ts := clock.NewFake(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))

	t.Run("redis backend serves health and tiers", func(t *testing.T) {
		a, err := Build(testConfig(QuotaBackendRedis), db, rdb, ts, noPredictor{})
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/model/tiers", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var tiers []map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tiers))
		assert.Len(t, tiers, len(config.DefaultTiers))
	})

	t.Run("redis health failure degrades", func(t *testing.T) {
		deadRedis := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		defer deadRedis.Close()
		a, err := Build(testConfig(QuotaBackendRedis), db, deadRedis, ts, noPredictor{})
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("postgres backend needs no redis", func(t *testing.T) {
		a, err := Build(testConfig(QuotaBackendPostgres), db, nil, ts, noPredictor{})
		require.NoError(t, err)
		assert.Nil(t, a.Redis)
	})

	t.Run("redis backend without client", func(t *testing.T) {
		_, err := Build(testConfig(QuotaBackendRedis), db, nil, ts, noPredictor{})
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Build(testConfig("memcached"), db, rdb, ts, noPredictor{})
		assert.ErrorContains(t, err, "unknown quota backend")
	})

	t.Run("invalid tier", func(t *testing.T) {
		cfg := testConfig(QuotaBackendRedis)
		cfg.Quota.Tiers = map[string]config.TierConfig{"gs": {Limit: 3, Window: 0}}
		_, err := Build(cfg, db, rdb, ts, noPredictor{})
		assert.Error(t, err)
	})
}
