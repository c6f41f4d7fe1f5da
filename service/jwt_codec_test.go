package service

import (
	"face-insight-api/clock"
	"face-insight-api/model"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTCodec_IssueAndDecode(t *testing.T) {
	codec := NewJWTCodec("secret", "face-insight-api", clock.NewFake(testEpoch))
	ttl := time.Hour

	tok, err := codec.Issue(42, model.RoleAdmin, model.TokenTypeAccess, &ttl)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.JTI)
	require.NotNil(t, tok.ExpiresAt)
	assert.True(t, tok.ExpiresAt.Equal(testEpoch.Add(time.Hour)))

	claims, err := codec.Decode(tok.Encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, model.TokenTypeAccess, claims.Type)
	assert.Equal(t, tok.JTI, claims.ID)
	assert.True(t, codec.ExpiresAt(claims).Equal(*tok.ExpiresAt))
}

func TestJWTCodec_UniqueJTI(t *testing.T) {
	codec := NewJWTCodec("secret", "face-insight-api", clock.NewFake(testEpoch))
	ttl := time.Hour

	a, err := codec.Issue(1, model.RoleUser, model.TokenTypeAccess, &ttl)
	require.NoError(t, err)
	b, err := codec.Issue(1, model.RoleUser, model.TokenTypeAccess, &ttl)
	require.NoError(t, err)
	assert.NotEqual(t, a.JTI, b.JTI)
}

func TestJWTCodec_DecodeExpiredStillSucceeds(t *testing.T) {
	// Issued in 2020 with a one minute lifetime, so long expired by wall clock.
	codec := NewJWTCodec("secret", "face-insight-api", clock.NewFake(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	ttl := time.Minute

	tok, err := codec.Issue(1, model.RoleUser, model.TokenTypeRefresh, &ttl)
	require.NoError(t, err)

	claims, err := codec.Decode(tok.Encoded)
	require.NoError(t, err)
	assert.Equal(t, tok.JTI, claims.ID)
}

func TestJWTCodec_NoExpiry(t *testing.T) {
	codec := NewJWTCodec("secret", "face-insight-api", clock.NewFake(testEpoch))

	tok, err := codec.Issue(1, model.RoleUser, model.TokenTypeAccess, nil)
	require.NoError(t, err)
	assert.Nil(t, tok.ExpiresAt)

	claims, err := codec.Decode(tok.Encoded)
	require.NoError(t, err)
	assert.Nil(t, codec.ExpiresAt(claims))
}

func TestJWTCodec_DecodeFailures(t *testing.T) {
	codec := NewJWTCodec("secret", "face-insight-api", clock.NewFake(testEpoch))
	other := NewJWTCodec("other-secret", "face-insight-api", clock.NewFake(testEpoch))
	ttl := time.Hour
	foreign, err := other.Issue(1, model.RoleUser, model.TokenTypeAccess, &ttl)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &model.AppClaims{
		UserID:           1,
		Type:             model.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	missingJTI, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &model.AppClaims{
		UserID: 1,
		Type:   model.TokenTypeAccess,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		encoded string
	}{
		{"Garbage", "not-a-jwt"},
		{"Empty", ""},
		{"Wrong secret", foreign.Encoded},
		{"Alg none", unsigned},
		{"Missing jti", missingJTI},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode(tc.encoded)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}
