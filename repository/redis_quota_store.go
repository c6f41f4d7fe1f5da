package repository

import (
	"context"
	"errors"
	"face-insight-api/logger"
	"face-insight-api/model"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const quotaKeyPrefix = "quota:"

// IQuotaRedisClient is the subset of the go-redis API used by RedisQuotaStore.
// *redis.Client and *redis.ClusterClient both satisfy it.
type IQuotaRedisClient interface {
	redis.Scripter
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// checkAndConsumeScript runs fetch, rollover, compare and increment as one
// Redis command, so concurrent callers on the same key are serialized.
//
// KEYS[1] quota hash
// ARGV    now_ms, window_ms, limit, identity, tier
// returns {admitted, used, reset_at_ms}
var checkAndConsumeScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local used = tonumber(redis.call("HGET", key, "used") or "0")
local reset_at = tonumber(redis.call("HGET", key, "reset_at") or "0")

if reset_at == 0 or now >= reset_at then
	used = 0
	reset_at = now + window
end

local admitted = 0
if used < limit then
	used = used + 1
	admitted = 1
end

redis.call("HSET", key, "used", used, "reset_at", reset_at, "limit", limit, "identity", ARGV[4], "tier", ARGV[5])
redis.call("PEXPIRE", key, reset_at - now)

return {admitted, used, reset_at}
`)

// RedisQuotaStore keeps one hash per (identity, tier) that expires with its
// window.
type RedisQuotaStore struct {
	client IQuotaRedisClient
}

func NewRedisQuotaStore(client IQuotaRedisClient) *RedisQuotaStore {
	return &RedisQuotaStore{client: client}
}

// quotaKey wraps the pair in a hash tag so a cluster maps it to one slot.
func quotaKey(identityKey, tierName string) string {
	return fmt.Sprintf("%s{%s|%s}", quotaKeyPrefix, identityKey, tierName)
}

func (s *RedisQuotaStore) CheckAndConsume(ctx context.Context, identityKey string, tier model.TierSpec, now time.Time) (model.Admission, error) {
	args := []interface{}{
		now.UnixMilli(),
		tier.Window.Milliseconds(),
		tier.Limit,
		identityKey,
		tier.Name,
	}
	result, err := checkAndConsumeScript.Run(ctx, s.client, []string{quotaKey(identityKey, tier.Name)}, args...).Result()
	if err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"identity": identityKey,
			"tier":     tier.Name,
		}).Error("Quota script failed")
		return model.Admission{}, err
	}

	vals, ok := result.([]interface{})
	if !ok || len(vals) != 3 {
		return model.Admission{}, fmt.Errorf("quota script: invalid return %T", result)
	}
	admitted, ok1 := vals[0].(int64)
	used, ok2 := vals[1].(int64)
	resetAtMs, ok3 := vals[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return model.Admission{}, fmt.Errorf("quota script: invalid return values %v", vals)
	}

	resetAt := time.UnixMilli(resetAtMs).In(now.Location())
	return admission(tier, admitted == 1, int(used), resetAt), nil
}

func (s *RedisQuotaStore) Get(ctx context.Context, identityKey, tierName string) (*model.QuotaRecord, error) {
	return s.get(ctx, quotaKey(identityKey, tierName))
}

func (s *RedisQuotaStore) get(ctx context.Context, key string) (*model.QuotaRecord, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrQuotaNotFound
	}
	return parseQuotaHash(fields)
}

func (s *RedisQuotaStore) Reset(ctx context.Context, identityKey, tierName string) error {
	n, err := s.client.Del(ctx, quotaKey(identityKey, tierName)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuotaNotFound
	}
	return nil
}

func (s *RedisQuotaStore) List(ctx context.Context) ([]model.QuotaRecord, error) {
	var (
		records []model.QuotaRecord
		cursor  uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, quotaKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			rec, err := s.get(ctx, key)
			if errors.Is(err, ErrQuotaNotFound) {
				// Expired between SCAN and HGETALL.
				continue
			}
			if err != nil {
				return nil, err
			}
			records = append(records, *rec)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return records, nil
}

func parseQuotaHash(fields map[string]string) (*model.QuotaRecord, error) {
	used, err := strconv.Atoi(fields["used"])
	if err != nil {
		return nil, fmt.Errorf("quota hash: used: %w", err)
	}
	limit, err := strconv.Atoi(fields["limit"])
	if err != nil {
		return nil, fmt.Errorf("quota hash: limit: %w", err)
	}
	resetAtMs, err := strconv.ParseInt(fields["reset_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("quota hash: reset_at: %w", err)
	}
	return &model.QuotaRecord{
		IdentityKey:   fields["identity"],
		TierName:      fields["tier"],
		Limit:         limit,
		Used:          used,
		WindowResetAt: time.UnixMilli(resetAtMs),
	}, nil
}
