package service

import (
	"face-insight-api/config"
	"face-insight-api/model"
	"fmt"
	"sort"
	"time"
)

// QuotaPolicy maps a model identifier to its quota tier. It never falls back
// to a default tier.
type QuotaPolicy struct {
	tiers map[string]model.TierSpec
	trial model.TierSpec
}

// NewQuotaPolicy validates the configured tiers. A tier must have a
// non-negative limit and a positive window.
func NewQuotaPolicy(tiers map[string]config.TierConfig, trial config.TierConfig) (*QuotaPolicy, error) {
	p := &QuotaPolicy{tiers: make(map[string]model.TierSpec, len(tiers))}
	for modelType, t := range tiers {
		spec, err := tierSpec(modelType, t)
		if err != nil {
			return nil, err
		}
		p.tiers[modelType] = spec
	}
	spec, err := tierSpec("trial", trial)
	if err != nil {
		return nil, err
	}
	p.trial = spec
	return p, nil
}

func tierSpec(scope string, t config.TierConfig) (model.TierSpec, error) {
	if t.Limit < 0 || t.Window <= 0 {
		return model.TierSpec{}, fmt.Errorf("invalid quota tier %q: limit %d, window %s", scope, t.Limit, t.Window)
	}
	name := t.Name
	if name == "" {
		name = describeTier(t.Limit, t.Window)
	}
	return model.TierSpec{
		// Qualified so tiers sharing a limit string keep separate counters.
		Name:   scope + "/" + name,
		Limit:  t.Limit,
		Window: t.Window,
	}, nil
}

func describeTier(limit int, window time.Duration) string {
	switch window {
	case 24 * time.Hour:
		return fmt.Sprintf("%d per day", limit)
	case time.Hour:
		return fmt.Sprintf("%d per hour", limit)
	case time.Minute:
		return fmt.Sprintf("%d per minute", limit)
	}
	return fmt.Sprintf("%d per %s", limit, window)
}

// ResolveTier returns the tier configured for modelType, or ErrUnknownModel.
func (p *QuotaPolicy) ResolveTier(modelType string) (model.TierSpec, error) {
	tier, ok := p.tiers[modelType]
	if !ok {
		return model.TierSpec{}, fmt.Errorf("%w: %q", ErrUnknownModel, modelType)
	}
	return tier, nil
}

// TrialTier returns the anonymous trial tier after checking that modelType
// is configured.
func (p *QuotaPolicy) TrialTier(modelType string) (model.TierSpec, error) {
	if _, err := p.ResolveTier(modelType); err != nil {
		return model.TierSpec{}, err
	}
	return p.trial, nil
}

// Models lists every configured model with its tier, sorted by model.
func (p *QuotaPolicy) Models() []model.ModelTier {
	out := make([]model.ModelTier, 0, len(p.tiers))
	for m, t := range p.tiers {
		out = append(out, model.ModelTier{Model: m, Tier: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}
