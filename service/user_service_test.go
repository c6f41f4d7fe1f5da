package service

import (
	"context"
	"errors"
	"face-insight-api/model"
	"face-insight-api/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestUserService_UpdateUserRole(t *testing.T) {
	t.Run("success revokes outstanding credentials", func(t *testing.T) {
		f := newTokenFixture()
		access := f.issueRecorded(t, 1, model.TokenTypeAccess, time.Hour)
		mockRepo := new(mockUserRepository)
		mockRepo.On("UpdateUserRole", mock.Anything, int64(1), model.RoleAdmin).Return(nil).Once()

		userService := NewUserService(mockRepo, f.tokens, time.Second)
		err := userService.UpdateUserRole(context.Background(), 1, model.RoleAdmin)

		assert.NoError(t, err)
		revoked, err := f.tokens.IsRevoked(context.Background(), access.JTI, 1)
		assert.NoError(t, err)
		assert.True(t, revoked)
		mockRepo.AssertExpectations(t)
	})

	t.Run("zero timeout leaves the store call unbounded", func(t *testing.T) {
		f := newTokenFixture()
		mockRepo := new(mockUserRepository)
		mockRepo.On("UpdateUserRole", mock.Anything, int64(1), model.RoleUser).
			Run(func(args mock.Arguments) {
				assert.NoError(t, args.Get(0).(context.Context).Err())
			}).
			Return(nil).Once()

		userService := NewUserService(mockRepo, f.tokens, 0)
		err := userService.UpdateUserRole(context.Background(), 1, model.RoleUser)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newTokenFixture()
		mockRepo := new(mockUserRepository)
		mockRepo.On("UpdateUserRole", mock.Anything, int64(2), model.RoleUser).Return(repository.ErrUserNotFound).Once()

		userService := NewUserService(mockRepo, f.tokens, time.Second)
		err := userService.UpdateUserRole(context.Background(), 2, model.RoleUser)

		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("repository error", func(t *testing.T) {
		f := newTokenFixture()
		mockRepo := new(mockUserRepository)
		mockRepo.On("UpdateUserRole", mock.Anything, int64(2), model.RoleUser).Return(errors.New("database error")).Once()

		userService := NewUserService(mockRepo, f.tokens, time.Second)
		err := userService.UpdateUserRole(context.Background(), 2, model.RoleUser)

		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("invalid role", func(t *testing.T) {
		mockRepo := new(mockUserRepository)
		userService := NewUserService(mockRepo, nil, time.Second)

		err := userService.UpdateUserRole(context.Background(), 3, "invalid_role")

		assert.ErrorIs(t, err, ErrInvalidRole)
		mockRepo.AssertNotCalled(t, "UpdateUserRole")
	})
}
