package common

import (
	"encoding/json"
	"face-insight-api/logger"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Stable machine-readable reasons carried in every error response.
const (
	ReasonInvalidRequest   = "invalid_request"
	ReasonUnauthorized     = "unauthorized"
	ReasonForbidden        = "forbidden"
	ReasonNotFound         = "not_found"
	ReasonConflict         = "conflict"
	ReasonUnknownModel     = "unknown_model"
	ReasonQuotaExceeded    = "quota_exceeded"
	ReasonStoreUnavailable = "store_unavailable"
	ReasonUpstream         = "upstream_unavailable"
	ReasonInternal         = "internal_error"
)

type AppError struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError whose reason is derived from the status code.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Reason:  reasonForStatus(code),
		Message: message,
		Err:     err,
	}
}

// WithReason overrides the derived reason.
func (e *AppError) WithReason(reason string) *AppError {
	e.Reason = reason
	return e
}

func reasonForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return ReasonInvalidRequest
	case http.StatusUnauthorized:
		return ReasonUnauthorized
	case http.StatusForbidden:
		return ReasonForbidden
	case http.StatusNotFound:
		return ReasonNotFound
	case http.StatusConflict:
		return ReasonConflict
	case http.StatusTooManyRequests:
		return ReasonQuotaExceeded
	case http.StatusServiceUnavailable:
		return ReasonStoreUnavailable
	default:
		return ReasonInternal
	}
}

func (e *AppError) Send(w http.ResponseWriter) {
	if e.Err != nil {
		logger.Log.WithFields(logrus.Fields{
			"status_code":    e.Code,
			"reason":         e.Reason,
			"internal_error": e.Err.Error(),
		}).Error(e.Message)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Code)
	json.NewEncoder(w).Encode(e)
}

// WriteJSON writes payload with the given status code.
func WriteJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
