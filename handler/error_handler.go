package handler

import (
	"errors"
	"face-insight-api/common"
	"face-insight-api/logger"
	"face-insight-api/service"
	"net/http"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// serviceError maps a service-layer error onto the HTTP error taxonomy.
func serviceError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrWrongTokenType):
		return common.NewAppError(http.StatusUnauthorized, invalidTokenMessage, nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, service.ErrStoreUnavailable):
		return common.NewAppError(http.StatusServiceUnavailable, "Service temporarily unavailable", err)
	case errors.Is(err, service.ErrPredictorUnavailable):
		return common.NewAppError(http.StatusServiceUnavailable, "Prediction service unavailable", err).
			WithReason(common.ReasonUpstream)
	case errors.Is(err, service.ErrUnknownModel):
		return common.NewAppError(http.StatusNotFound, "Unknown model type", nil).
			WithReason(common.ReasonUnknownModel)
	case errors.Is(err, service.ErrEmailAlreadyUsed):
		return common.NewAppError(http.StatusConflict, "Username or email already in use", nil)
	case errors.Is(err, service.ErrInvalidRole):
		return common.NewAppError(http.StatusBadRequest, "Invalid role specified", nil)
	case errors.Is(err, service.ErrUserNotFound):
		return common.NewAppError(http.StatusNotFound, "User not found", nil)
	case errors.Is(err, service.ErrQuotaNotFound):
		return common.NewAppError(http.StatusNotFound, "No quota record for this identity", nil)
	case errors.Is(err, service.ErrTokenNotFound):
		logger.Log.WithError(err).Warn("Token record missing for an admitted credential")
		return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
}
