package handler

import (
	"context"
	"errors"
	"face-insight-api/common"
	"face-insight-api/logger"
	"face-insight-api/model"
	"face-insight-api/service"
	"net/http"

	"github.com/sirupsen/logrus"
)

// IAuthService is the credential flow surface the auth routes need.
type IAuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.TokenPair, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.TokenPair, error)
	Refresh(ctx context.Context, p model.Principal) (*model.AccessTokenResponse, error)
	Logout(ctx context.Context, p model.Principal) error
	RevokeRefresh(ctx context.Context, p model.Principal) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, p model.Principal, newPassword string) error
	CheckResetToken(p model.Principal) error
}

type AuthHandler struct {
	auth IAuthService
}

func NewAuthHandler(auth IAuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func principal(r *http.Request) (model.Principal, *common.AppError) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		return model.Principal{}, common.NewAppError(http.StatusUnauthorized, invalidTokenMessage, nil)
	}
	return p, nil
}

func message(w http.ResponseWriter, code int, msg string) {
	common.WriteJSON(w, code, map[string]string{"message": msg})
}

// Register godoc
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RegisterRequest true "New user"
// @Success      201  {object}  model.TokenPair
// @Failure      400  {object}  common.AppError
// @Failure      409  {object}  common.AppError
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	pair, err := h.auth.Register(r.Context(), req)
	if err != nil {
		return serviceError(err)
	}
	common.WriteJSON(w, http.StatusCreated, pair)
	return nil
}

// Login godoc
// @Summary      Log in and receive an access and refresh token
// @Description  Every credential previously issued to the user is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Credentials"
// @Success      200  {object}  model.TokenPair
// @Failure      401  {object}  common.AppError
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	pair, err := h.auth.Login(r.Context(), req)
	if err != nil {
		return serviceError(err)
	}
	common.WriteJSON(w, http.StatusOK, pair)
	return nil
}

// Refresh godoc
// @Summary      Exchange a refresh token for a new access token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.AccessTokenResponse
// @Failure      401  {object}  common.AppError
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	p, appErr := principal(r)
	if appErr != nil {
		return appErr
	}

	resp, err := h.auth.Refresh(r.Context(), p)
	if err != nil {
		return serviceError(err)
	}
	common.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// Logout godoc
// @Summary      Revoke the presented access token
// @Description  The refresh token is not revoked.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  common.AppError
// @Router       /auth/logout [post]
// @Router       /auth/revoke_access [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	p, appErr := principal(r)
	if appErr != nil {
		return appErr
	}

	if err := h.auth.Logout(r.Context(), p); err != nil {
		return serviceError(err)
	}
	logger.Log.WithFields(logrus.Fields{"user_id": p.UserID, "jti": p.JTI}).Info("Access token revoked")
	message(w, http.StatusOK, "Access token revoked")
	return nil
}

// RevokeRefresh godoc
// @Summary      Revoke the presented refresh token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  common.AppError
// @Router       /auth/revoke_refresh [post]
func (h *AuthHandler) RevokeRefresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	p, appErr := principal(r)
	if appErr != nil {
		return appErr
	}

	if err := h.auth.RevokeRefresh(r.Context(), p); err != nil {
		return serviceError(err)
	}
	message(w, http.StatusOK, "Refresh token revoked")
	return nil
}

// RequestPasswordReset godoc
// @Summary      Send a password reset link
// @Description  Always answers 202 for a well-formed email so accounts cannot be enumerated.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RequestPasswordResetRequest true "Account email"
// @Success      202  {object}  map[string]string
// @Failure      400  {object}  common.AppError
// @Router       /auth/request_reset_password [post]
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RequestPasswordResetRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	err := h.auth.RequestPasswordReset(r.Context(), req.Email)
	if err != nil && !errors.Is(err, service.ErrUserNotFound) {
		return serviceError(err)
	}
	message(w, http.StatusAccepted, "If the account exists, a reset link has been sent")
	return nil
}

// ResetPassword godoc
// @Summary      Set a new password with a reset token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body model.ResetPasswordRequest true "New password"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  common.AppError
// @Router       /auth/reset_password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	p, appErr := principal(r)
	if appErr != nil {
		return appErr
	}
	var req model.ResetPasswordRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	if err := h.auth.ResetPassword(r.Context(), p, req.Password); err != nil {
		return serviceError(err)
	}
	message(w, http.StatusOK, "Password updated")
	return nil
}

// CheckResetPasswordToken godoc
// @Summary      Check that a reset token is still usable
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]bool
// @Failure      401  {object}  common.AppError
// @Router       /auth/check_reset_password_token [get]
func (h *AuthHandler) CheckResetPasswordToken(w http.ResponseWriter, r *http.Request) *common.AppError {
	p, appErr := principal(r)
	if appErr != nil {
		return appErr
	}
	if err := h.auth.CheckResetToken(p); err != nil {
		return serviceError(err)
	}
	common.WriteJSON(w, http.StatusOK, map[string]bool{"valid": true})
	return nil
}
