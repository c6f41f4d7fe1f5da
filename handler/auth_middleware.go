package handler

import (
	"context"
	"errors"
	"face-insight-api/common"
	"face-insight-api/model"
	"face-insight-api/service"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	UserRoleKey  contextKey = "userRole"
	PrincipalKey contextKey = "principal"
)

// ITokenValidator admits or rejects a presented bearer credential.
type ITokenValidator interface {
	Validate(ctx context.Context, encoded string) (model.Principal, error)
}

const invalidTokenMessage = "Invalid or expired token"

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" || headerParts[1] == "" {
		return "", false
	}
	return headerParts[1], true
}

// AuthMiddleware validates the bearer credential on every request before
// next runs and stores the resolved principal in the request context.
func AuthMiddleware(tokens ITokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil).Send(w)
				return
			}

			principal, err := tokens.Validate(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, service.ErrStoreUnavailable) {
					common.NewAppError(http.StatusServiceUnavailable, "Service temporarily unavailable", err).Send(w)
					return
				}
				common.NewAppError(http.StatusUnauthorized, invalidTokenMessage, nil).Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, principal.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, principal.Role)
			ctx = context.WithValue(ctx, PrincipalKey, principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFrom returns the principal AuthMiddleware stored in ctx.
func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(model.Principal)
	return p, ok
}

// RequireTokenType rejects credentials whose type is not one of types.
// It must run after AuthMiddleware.
func RequireTokenType(types ...model.TokenType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if ok {
				for _, t := range types {
					if p.Type == t {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			common.NewAppError(http.StatusUnauthorized, invalidTokenMessage, nil).Send(w)
		})
	}
}

func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(UserRoleKey).(model.Role)

		if !ok || role != model.RoleAdmin {
			err := common.NewAppError(http.StatusForbidden, "Access denied. Admin privileges required.", nil)
			err.Send(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
