package model

import "github.com/golang-jwt/jwt/v5"

// AppClaims is the payload of every credential this service issues.
// UserID is the single identity claim carried from decode to store lookup.
type AppClaims struct {
	UserID int64     `json:"user_id"`
	Role   Role      `json:"role,omitempty"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Principal is the identity resolved for an admitted request.
type Principal struct {
	UserID int64
	Role   Role
	JTI    string
	Type   TokenType
}
