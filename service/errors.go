package service

import "errors"

var (
	// ErrDecode is returned when a credential cannot be parsed or verified.
	ErrDecode = errors.New("credential could not be decoded")
	// ErrUnauthorized covers every rejection of a presented credential:
	// malformed, revoked, expired or unknown.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenNotFound means no record exists for a (jti, user_id) pair.
	ErrTokenNotFound = errors.New("token not found")
	// ErrStoreUnavailable wraps a failed or timed-out store round-trip.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUnknownModel is returned for a model identifier with no configured tier.
	ErrUnknownModel = errors.New("unknown model")
	// ErrQuotaNotFound means no quota record exists for the pair.
	ErrQuotaNotFound = errors.New("quota record not found")

	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailAlreadyUsed     = errors.New("username or email already in use")
	ErrUserNotFound         = errors.New("user not found")
	ErrWrongTokenType       = errors.New("wrong token type for this operation")
	ErrPredictorUnavailable = errors.New("prediction service unavailable")
	ErrInvalidRole          = errors.New("invalid role specified")
)
