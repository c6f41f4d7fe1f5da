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
	"golang.org/x/crypto/bcrypt"
)

var passwordCost = 14

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ITokenIssuer signs new credentials.
type ITokenIssuer interface {
	Issue(userID int64, role model.Role, tokenType model.TokenType, ttl *time.Duration) (IssuedToken, error)
}

// AuthSettings holds the credential lifetimes and the reset link prefix.
type AuthSettings struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ResetTTL     time.Duration
	ResetURL     string
	StoreTimeout time.Duration
}

// AuthService implements registration, login and the credential flows built
// on TokenService.
type AuthService struct {
	users    repository.IUserRepository
	tokens   *TokenService
	issuer   ITokenIssuer
	notifier Notifier
	settings AuthSettings
}

func NewAuthService(users repository.IUserRepository, tokens *TokenService, issuer ITokenIssuer, notifier Notifier, settings AuthSettings) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		issuer:   issuer,
		notifier: notifier,
		settings: settings,
	}
}

func (s *AuthService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withStoreTimeout(ctx, s.settings.StoreTimeout)
}

// issue signs a credential and records it before handing it out.
func (s *AuthService) issue(ctx context.Context, user *model.User, tokenType model.TokenType, ttl time.Duration) (string, error) {
	tok, err := s.issuer.Issue(user.ID, user.Role, tokenType, &ttl)
	if err != nil {
		return "", err
	}
	if err := s.tokens.RecordIssuedToken(ctx, tok); err != nil {
		return "", err
	}
	return tok.Encoded, nil
}

func (s *AuthService) issuePair(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	access, err := s.issue(ctx, user, model.TokenTypeAccess, s.settings.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(ctx, user, model.TokenTypeRefresh, s.settings.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Register creates a user and returns a first credential pair.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.TokenPair, error) {
	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
		Role:     model.RoleUser,
	}

	storeCtx, cancel := s.storeContext(ctx)
	err = s.users.CreateUser(storeCtx, user)
	cancel()
	if errors.Is(err, repository.ErrDuplicateUser) {
		return nil, ErrEmailAlreadyUsed
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("User registered")
	return s.issuePair(ctx, user)
}

func (s *AuthService) lookupByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return user, nil
}

// Login verifies credentials, revokes every credential the user already holds
// and issues a new access and refresh pair.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.TokenPair, error) {
	user, err := s.lookupByEmail(ctx, req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPasswordHash(req.Password, user.Password) {
		logger.Log.WithField("user_id", user.ID).Warn("Login with wrong password")
		return nil, ErrInvalidCredentials
	}

	if _, err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return nil, err
	}
	return s.issuePair(ctx, user)
}

func requireType(p model.Principal, want model.TokenType) error {
	if p.Type != want {
		return fmt.Errorf("%w: got %s, want %s", ErrWrongTokenType, p.Type, want)
	}
	return nil
}

// Refresh issues a new access credential for the holder of a refresh credential.
func (s *AuthService) Refresh(ctx context.Context, p model.Principal) (*model.AccessTokenResponse, error) {
	if err := requireType(p, model.TokenTypeRefresh); err != nil {
		return nil, err
	}
	user := &model.User{ID: p.UserID, Role: p.Role}
	access, err := s.issue(ctx, user, model.TokenTypeAccess, s.settings.AccessTTL)
	if err != nil {
		return nil, err
	}
	return &model.AccessTokenResponse{AccessToken: access}, nil
}

// Logout revokes the presented access credential only. The refresh
// credential stays valid until it is revoked or expires.
func (s *AuthService) Logout(ctx context.Context, p model.Principal) error {
	if err := requireType(p, model.TokenTypeAccess); err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, p.JTI, p.UserID)
}

// RevokeRefresh revokes the presented refresh credential.
func (s *AuthService) RevokeRefresh(ctx context.Context, p model.Principal) error {
	if err := requireType(p, model.TokenTypeRefresh); err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, p.JTI, p.UserID)
}

// RequestPasswordReset revokes every credential of the user owning email and
// sends them a short-lived reset credential.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.lookupByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	reset, err := s.issue(ctx, user, model.TokenTypeResetPassword, s.settings.ResetTTL)
	if err != nil {
		return err
	}
	return s.notifier.SendPasswordReset(ctx, user, s.settings.ResetURL+reset)
}

// ResetPassword sets a new password for the holder of a reset credential and
// revokes everything the user holds, the reset credential included.
func (s *AuthService) ResetPassword(ctx context.Context, p model.Principal, newPassword string) error {
	if err := requireType(p, model.TokenTypeResetPassword); err != nil {
		return err
	}
	hashed, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	storeCtx, cancel := s.storeContext(ctx)
	err = s.users.UpdatePassword(storeCtx, p.UserID, hashed)
	cancel()
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	_, err = s.tokens.RevokeAll(ctx, p.UserID)
	return err
}

// CheckResetToken confirms p came from a reset credential.
func (s *AuthService) CheckResetToken(p model.Principal) error {
	return requireType(p, model.TokenTypeResetPassword)
}
