package service

import (
	"context"
	"errors"
	"face-insight-api/clock"
	"face-insight-api/logger"
	"face-insight-api/metrics"
	"face-insight-api/model"
	"face-insight-api/repository"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// UserIdentityKey is the quota identity of an authenticated user.
func UserIdentityKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

const ipIdentityPrefix = "ip:"

// IPIdentityKey is the quota identity of an anonymous caller.
func IPIdentityKey(ip string) string {
	return ipIdentityPrefix + ip
}

// QuotaGate admits or denies costly operations per identity and model.
// A store failure always denies.
type QuotaGate struct {
	policy  *QuotaPolicy
	store   repository.QuotaStore
	clock   clock.TimeSource
	timeout time.Duration
}

func NewQuotaGate(policy *QuotaPolicy, store repository.QuotaStore, ts clock.TimeSource, timeout time.Duration) *QuotaGate {
	return &QuotaGate{policy: policy, store: store, clock: ts, timeout: timeout}
}

func (g *QuotaGate) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withStoreTimeout(ctx, g.timeout)
}

// Policy exposes the resolver the gate consults.
func (g *QuotaGate) Policy() *QuotaPolicy {
	return g.policy
}

// CheckAndConsume resolves the tier for modelType and consumes one request
// from identityKey's allowance. A denial is returned as Admission{Admitted:
// false}, not as an error. Errors are ErrUnknownModel or ErrStoreUnavailable.
func (g *QuotaGate) CheckAndConsume(ctx context.Context, identityKey, modelType string) (model.Admission, error) {
	tier, err := g.policy.ResolveTier(modelType)
	if err != nil {
		return model.Admission{}, err
	}
	return g.consume(ctx, identityKey, tier)
}

// CheckAndConsumeTrial consumes one request from identityKey's anonymous
// trial allowance, which every model shares.
func (g *QuotaGate) CheckAndConsumeTrial(ctx context.Context, identityKey, modelType string) (model.Admission, error) {
	tier, err := g.policy.TrialTier(modelType)
	if err != nil {
		return model.Admission{}, err
	}
	return g.consume(ctx, identityKey, tier)
}

func (g *QuotaGate) consume(ctx context.Context, identityKey string, tier model.TierSpec) (model.Admission, error) {
	ctx, cancel := g.storeContext(ctx)
	defer cancel()
	start := time.Now()
	adm, err := g.store.CheckAndConsume(ctx, identityKey, tier, g.clock.Now())
	observeStore("quota", "check_and_consume", start)
	if err != nil {
		metrics.QuotaDecisions.WithLabelValues(tier.Name, "unavailable").Inc()
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"identity": identityKey,
			"tier":     tier.Name,
		}).Error("Quota store unavailable, denying request")
		return model.Admission{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	outcome := "admitted"
	if !adm.Admitted {
		outcome = "denied"
	}
	metrics.QuotaDecisions.WithLabelValues(tier.Name, outcome).Inc()
	return adm, nil
}

// normalize reports a record whose window has elapsed as unused and moves its
// reset time into the service zone.
func (g *QuotaGate) normalize(rec model.QuotaRecord) model.QuotaRecord {
	now := g.clock.Now()
	if !now.Before(rec.WindowResetAt) {
		rec.Used = 0
	}
	rec.WindowResetAt = rec.WindowResetAt.In(now.Location())
	return rec
}

// adminTier picks the tier an identity is counted against: anonymous IP
// identities consume the trial tier, everyone else the model's own tier.
func (g *QuotaGate) adminTier(identityKey, modelType string) (model.TierSpec, error) {
	if strings.HasPrefix(identityKey, ipIdentityPrefix) {
		return g.policy.TrialTier(modelType)
	}
	return g.policy.ResolveTier(modelType)
}

// Usage returns identityKey's current consumption for modelType.
func (g *QuotaGate) Usage(ctx context.Context, identityKey, modelType string) (model.QuotaRecord, error) {
	tier, err := g.adminTier(identityKey, modelType)
	if err != nil {
		return model.QuotaRecord{}, err
	}

	ctx, cancel := g.storeContext(ctx)
	defer cancel()
	rec, err := g.store.Get(ctx, identityKey, tier.Name)
	if errors.Is(err, repository.ErrQuotaNotFound) {
		return model.QuotaRecord{IdentityKey: identityKey, TierName: tier.Name, Limit: tier.Limit}, nil
	}
	if err != nil {
		return model.QuotaRecord{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return g.normalize(*rec), nil
}

// Reset clears identityKey's consumption for modelType.
func (g *QuotaGate) Reset(ctx context.Context, identityKey, modelType string) error {
	tier, err := g.adminTier(identityKey, modelType)
	if err != nil {
		return err
	}

	ctx, cancel := g.storeContext(ctx)
	defer cancel()
	err = g.store.Reset(ctx, identityKey, tier.Name)
	if errors.Is(err, repository.ErrQuotaNotFound) {
		return ErrQuotaNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	logger.Log.WithFields(logrus.Fields{"identity": identityKey, "tier": tier.Name}).Info("Quota reset")
	return nil
}

// ListUsage returns every tracked quota record.
func (g *QuotaGate) ListUsage(ctx context.Context) ([]model.QuotaRecord, error) {
	ctx, cancel := g.storeContext(ctx)
	defer cancel()
	records, err := g.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	out := make([]model.QuotaRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, g.normalize(rec))
	}
	return out, nil
}
