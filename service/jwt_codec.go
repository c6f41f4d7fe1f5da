package service

import (
	"errors"
	"face-insight-api/clock"
	"face-insight-api/logger"
	"face-insight-api/model"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssuedToken is a freshly signed credential with the claims the block-list
// needs to record it.
type IssuedToken struct {
	Encoded   string
	JTI       string
	UserID    int64
	Type      model.TokenType
	ExpiresAt *time.Time
}

// JWTCodec issues and decodes HS256 credentials.
type JWTCodec struct {
	secret []byte
	issuer string
	clock  clock.TimeSource
}

func NewJWTCodec(secret, issuer string, ts clock.TimeSource) *JWTCodec {
	return &JWTCodec{secret: []byte(secret), issuer: issuer, clock: ts}
}

// Issue signs a new credential for userID with a fresh jti. A nil ttl issues
// a credential without expiry.
func (c *JWTCodec) Issue(userID int64, role model.Role, tokenType model.TokenType, ttl *time.Duration) (IssuedToken, error) {
	now := c.clock.Now()
	claims := &model.AppClaims{
		UserID: userID,
		Role:   role,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   c.issuer,
			Subject:  fmt.Sprintf("%d", userID),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	var expiresAt *time.Time
	if ttl != nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(*ttl))
		exp := claims.ExpiresAt.Time.In(now.Location())
		expiresAt = &exp
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(c.secret)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to sign JWT")
		return IssuedToken{}, fmt.Errorf("failed to sign token string: %w", err)
	}

	return IssuedToken{
		Encoded:   encoded,
		JTI:       claims.ID,
		UserID:    userID,
		Type:      tokenType,
		ExpiresAt: expiresAt,
	}, nil
}

// Decode verifies the signature of encoded and returns its claims. Expiry is
// deliberately not checked here: an expired credential still decodes so the
// lifecycle manager can revoke it.
func (c *JWTCodec) Decode(encoded string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}
	_, err := jwt.ParseWithClaims(encoded, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if claims.ID == "" || claims.UserID == 0 || !claims.Type.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrDecode, errors.New("missing jti, user_id or type claim"))
	}
	return claims, nil
}

// ExpiresAt returns the expiry claim as a time in the codec's zone, or nil.
func (c *JWTCodec) ExpiresAt(claims *model.AppClaims) *time.Time {
	if claims.ExpiresAt == nil {
		return nil
	}
	loc := c.clock.Now().Location()
	exp := claims.ExpiresAt.Time.In(loc)
	return &exp
}
