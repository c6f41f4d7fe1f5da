package repository

import (
	"context"
	"errors"
	"face-insight-api/model"
	"time"
)

var ErrQuotaNotFound = errors.New("quota record not found")

// QuotaStore persists per-identity consumption against a tier. Implementations
// must perform CheckAndConsume atomically for one (identityKey, tier.Name)
// pair: fetch or create, roll the window over, compare and increment.
type QuotaStore interface {
	CheckAndConsume(ctx context.Context, identityKey string, tier model.TierSpec, now time.Time) (model.Admission, error)
	Get(ctx context.Context, identityKey, tierName string) (*model.QuotaRecord, error)
	Reset(ctx context.Context, identityKey, tierName string) error
	List(ctx context.Context) ([]model.QuotaRecord, error)
}

func admission(tier model.TierSpec, admitted bool, used int, resetAt time.Time) model.Admission {
	remaining := tier.Limit - used
	if remaining < 0 {
		remaining = 0
	}
	return model.Admission{
		Admitted:  admitted,
		Tier:      tier.Name,
		Limit:     tier.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
