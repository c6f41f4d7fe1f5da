package router

import (
	_ "face-insight-api/docs"
	"face-insight-api/handler"
	"face-insight-api/model"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Handlers groups everything NewRouter mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Prediction *handler.PredictionHandler
	Admin      *handler.AdminHandler
	User       *handler.UserHandler
	Health     *handler.HealthHandler
	Tokens     handler.ITokenValidator
}

func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

func NewRouter(h Handlers) http.Handler {
	mux := http.NewServeMux()

	auth := handler.AuthMiddleware(h.Tokens)
	accessOnly := handler.RequireTokenType(model.TokenTypeAccess)
	refreshOnly := handler.RequireTokenType(model.TokenTypeRefresh)
	resetOnly := handler.RequireTokenType(model.TokenTypeResetPassword)

	mux.HandleFunc("GET /health", h.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// --- Public auth routes ---
	mux.Handle("POST /auth/register", handler.ErrorHandlingMiddleware(h.Auth.Register))
	mux.Handle("POST /auth/login", handler.ErrorHandlingMiddleware(h.Auth.Login))
	mux.Handle("POST /auth/request_reset_password", handler.ErrorHandlingMiddleware(h.Auth.RequestPasswordReset))

	// --- Credential-typed auth routes ---
	mux.Handle("POST /auth/refresh", chain(handler.ErrorHandlingMiddleware(h.Auth.Refresh), auth, refreshOnly))
	mux.Handle("POST /auth/revoke_refresh", chain(handler.ErrorHandlingMiddleware(h.Auth.RevokeRefresh), auth, refreshOnly))
	mux.Handle("POST /auth/logout", chain(handler.ErrorHandlingMiddleware(h.Auth.Logout), auth, accessOnly))
	mux.Handle("POST /auth/revoke_access", chain(handler.ErrorHandlingMiddleware(h.Auth.Logout), auth, accessOnly))
	mux.Handle("POST /auth/reset_password", chain(handler.ErrorHandlingMiddleware(h.Auth.ResetPassword), auth, resetOnly))
	mux.Handle("GET /auth/check_reset_password_token", chain(handler.ErrorHandlingMiddleware(h.Auth.CheckResetPasswordToken), auth, resetOnly))

	// --- Model routes ---
	mux.Handle("GET /model/tiers", handler.ErrorHandlingMiddleware(h.Prediction.Tiers))
	mux.Handle("POST /model/trials/{modelType}", handler.ErrorHandlingMiddleware(h.Prediction.Trial))
	mux.Handle("POST /model/predict/{modelType}", chain(handler.ErrorHandlingMiddleware(h.Prediction.Predict), auth, accessOnly))

	// --- Admin routes ---
	adminOnly := func(next http.Handler) http.Handler {
		return chain(next, auth, accessOnly, handler.AdminMiddleware)
	}
	mux.Handle("GET /admin/quotas", adminOnly(handler.ErrorHandlingMiddleware(h.Admin.ListQuotas)))
	mux.Handle("GET /admin/quotas/{identity}/{modelType}", adminOnly(handler.ErrorHandlingMiddleware(h.Admin.GetQuota)))
	mux.Handle("POST /admin/quotas/{identity}/{modelType}/reset", adminOnly(handler.ErrorHandlingMiddleware(h.Admin.ResetQuota)))
	mux.Handle("PATCH /admin/users/{id}/role", adminOnly(handler.ErrorHandlingMiddleware(h.User.UpdateUserRole)))

	return mux
}
