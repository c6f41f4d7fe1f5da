package service

import (
	"context"
	"errors"
	"face-insight-api/logger"
	"face-insight-api/model"
	"face-insight-api/repository"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// UserService handles user administration.
type UserService struct {
	userRepo repository.IUserRepository
	tokens   *TokenService
	timeout  time.Duration
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.IUserRepository, tokens *TokenService, timeout time.Duration) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens, timeout: timeout}
}

func (s *UserService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withStoreTimeout(ctx, s.timeout)
}

// UpdateUserRole validates the role, stores it and revokes every credential
// the user holds, since issued credentials carry the old role.
func (s *UserService) UpdateUserRole(ctx context.Context, userID int64, newRole model.Role) error {
	if newRole != model.RoleAdmin && newRole != model.RoleUser {
		return ErrInvalidRole
	}

	storeCtx, cancel := s.storeContext(ctx)
	err := s.userRepo.UpdateUserRole(storeCtx, userID, newRole)
	cancel()
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	revoked, err := s.tokens.RevokeAll(ctx, userID)
	if err != nil {
		return err
	}
	logger.Log.WithFields(logrus.Fields{"user_id": userID, "role": newRole, "revoked": revoked}).Info("User role updated")
	return nil
}
