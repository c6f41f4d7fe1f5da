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
	"time"

	"github.com/sirupsen/logrus"
)

// ITokenDecoder decodes a presented credential into its claims.
type ITokenDecoder interface {
	Decode(encoded string) (*model.AppClaims, error)
	ExpiresAt(claims *model.AppClaims) *time.Time
}

// TokenService manages the lifecycle of issued credentials against the
// block-list. Nothing is cached: every check is a store round-trip.
type TokenService struct {
	repo      repository.ITokenRepository
	decoder   ITokenDecoder
	clock     clock.TimeSource
	timeout   time.Duration
	retention time.Duration
}

func NewTokenService(repo repository.ITokenRepository, decoder ITokenDecoder, ts clock.TimeSource, timeout, retention time.Duration) *TokenService {
	return &TokenService{
		repo:      repo,
		decoder:   decoder,
		clock:     ts,
		timeout:   timeout,
		retention: retention,
	}
}

// withStoreTimeout bounds a store call. A non-positive timeout means no bound.
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *TokenService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withStoreTimeout(ctx, s.timeout)
}

func observeStore(store, op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
}

// RecordIssuedToken persists a freshly issued credential as not revoked.
// Credentials without an expiry claim are rejected with ErrDecode.
func (s *TokenService) RecordIssuedToken(ctx context.Context, token IssuedToken) error {
	if token.ExpiresAt == nil {
		return fmt.Errorf("%w: credential has no expiry", ErrDecode)
	}
	rec := &model.TokenRecord{
		JTI:       token.JTI,
		TokenType: token.Type,
		UserID:    token.UserID,
		ExpiresAt: *token.ExpiresAt,
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	defer observeStore("token", "create", time.Now())

	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateToken) {
			return fmt.Errorf("record token %s: %w", token.JTI, err)
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Revoke marks the (jti, userID) record revoked. Revoking twice is a no-op;
// an unknown pair is an integrity problem reported as ErrTokenNotFound.
func (s *TokenService) Revoke(ctx context.Context, jti string, userID int64) error {
	return s.revoke(ctx, jti, userID, "explicit")
}

func (s *TokenService) revoke(ctx context.Context, jti string, userID int64, trigger string) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	defer observeStore("token", "revoke", time.Now())

	err := s.repo.Revoke(ctx, jti, userID, s.clock.Now())
	if errors.Is(err, repository.ErrTokenNotFound) {
		logger.Log.WithFields(logrus.Fields{"jti": jti, "user_id": userID}).
			Warn("Revoke requested for a token that was never recorded")
		return ErrTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	metrics.TokenRevocations.WithLabelValues(trigger).Inc()
	return nil
}

// RevokeAll revokes every active credential owned by userID.
func (s *TokenService) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	defer observeStore("token", "revoke_all", time.Now())

	n, err := s.repo.RevokeAllByUserID(ctx, userID, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	metrics.TokenRevocations.WithLabelValues("bulk").Add(float64(n))
	return n, nil
}

// IsRevoked reports whether the (jti, userID) credential may no longer be
// used. A credential with no record is treated as revoked.
func (s *TokenService) IsRevoked(ctx context.Context, jti string, userID int64) (bool, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	defer observeStore("token", "get", time.Now())

	rec, err := s.repo.GetByJTIAndUser(ctx, jti, userID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return rec.IsRevoked, nil
}

// IsExpired reports whether exp has been reached. A nil expiry never expires.
func (s *TokenService) IsExpired(exp *time.Time) bool {
	if exp == nil {
		return false
	}
	return !s.clock.Now().Before(*exp)
}

// Validate runs the admission protocol for a presented credential: decode,
// reject if revoked, revoke and reject if expired, otherwise admit.
// The only errors returned are ErrUnauthorized and ErrStoreUnavailable.
func (s *TokenService) Validate(ctx context.Context, encoded string) (model.Principal, error) {
	claims, err := s.decoder.Decode(encoded)
	if err != nil {
		metrics.TokenValidations.WithLabelValues("malformed").Inc()
		return model.Principal{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	log := logger.Log.WithFields(logrus.Fields{"jti": claims.ID, "user_id": claims.UserID})

	revoked, err := s.IsRevoked(ctx, claims.ID, claims.UserID)
	if err != nil {
		metrics.TokenValidations.WithLabelValues("unavailable").Inc()
		log.WithError(err).Error("Token store unavailable during validation")
		return model.Principal{}, err
	}
	if revoked {
		metrics.TokenValidations.WithLabelValues("revoked").Inc()
		return model.Principal{}, ErrUnauthorized
	}

	if s.IsExpired(s.decoder.ExpiresAt(claims)) {
		metrics.TokenValidations.WithLabelValues("expired").Inc()
		if err := s.revoke(ctx, claims.ID, claims.UserID, "expired"); err != nil && !errors.Is(err, ErrTokenNotFound) {
			log.WithError(err).Warn("Failed to revoke expired token")
		}
		return model.Principal{}, ErrUnauthorized
	}

	metrics.TokenValidations.WithLabelValues("admitted").Inc()
	return model.Principal{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    claims.ID,
		Type:   claims.Type,
	}, nil
}

// PurgeExpired deletes records that expired more than the retention window ago.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	before := s.clock.Now().Add(-s.retention)
	n, err := s.repo.PurgeExpired(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

// RunJanitor purges expired records every interval until ctx is done.
func (s *TokenService) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				logger.Log.WithError(err).Error("Token janitor failed")
				continue
			}
			if n > 0 {
				logger.Log.WithField("purged", n).Info("Token janitor purged expired tokens")
			}
		}
	}
}
