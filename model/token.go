// file: model/token.go

package model

import "time"

// TokenType tags what a credential may be used for.
type TokenType string

const (
	TokenTypeAccess        TokenType = "access"
	TokenTypeRefresh       TokenType = "refresh"
	TokenTypeResetPassword TokenType = "reset_password"
)

// Valid reports whether t is one of the known token types.
func (t TokenType) Valid() bool {
	switch t {
	case TokenTypeAccess, TokenTypeRefresh, TokenTypeResetPassword:
		return true
	}
	return false
}

// TokenRecord is one issued credential tracked in the block-list.
// A record is never physically deleted while inside the retention window, and
// IsRevoked only ever moves from false to true.
type TokenRecord struct {
	ID        int64      `json:"token_id"`
	JTI       string     `json:"jti"`
	TokenType TokenType  `json:"token_type"`
	UserID    int64      `json:"user_id"`
	IsRevoked bool       `json:"is_revoked"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// TokenPair is returned to clients on login and registration.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AccessTokenResponse is returned on refresh.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}
