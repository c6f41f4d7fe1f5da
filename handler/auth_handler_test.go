package handler

import (
	"face-insight-api/model"
	"face-insight-api/service"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAuthHandler_Register(t *testing.T) {
	testCases := []struct {
		name           string
		body           string
		setupMock      func(a *mockAuthService)
		expectedStatus int
	}{
		{
			name: "created",
			body: `{"username":"ada","email":"ada@example.com","password":"password123"}`,
			setupMock: func(a *mockAuthService) {
				a.On("Register", mock.Anything, model.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "password123"}).
					Return(&model.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid email",
			body:           `{"username":"ada","email":"nope","password":"password123"}`,
			setupMock:      func(a *mockAuthService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "email taken",
			body: `{"username":"ada","email":"ada@example.com","password":"password123"}`,
			setupMock: func(a *mockAuthService) {
				a.On("Register", mock.Anything, mock.Anything).Return(nil, service.ErrEmailAlreadyUsed)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			auth := new(mockAuthService)
			tc.setupMock(auth)
			h := NewAuthHandler(auth)

			rr := httptest.NewRecorder()
			ErrorHandlingMiddleware(h.Register).ServeHTTP(rr, jsonRequest(http.MethodPost, "/auth/register", tc.body))

			assert.Equal(t, tc.expectedStatus, rr.Code)
			auth.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_LoginWrongCredentials(t *testing.T) {
	auth := new(mockAuthService)
	auth.On("Login", mock.Anything, mock.Anything).Return(nil, service.ErrInvalidCredentials)
	h := NewAuthHandler(auth)

	rr := httptest.NewRecorder()
	ErrorHandlingMiddleware(h.Login).ServeHTTP(rr,
		jsonRequest(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"wrongpass1"}`))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid email or password", decodeError(t, rr)["message"])
}

func TestAuthHandler_Refresh(t *testing.T) {
	refresh := model.Principal{UserID: 3, JTI: "r-jti", Type: model.TokenTypeRefresh}
	auth := new(mockAuthService)
	auth.On("Refresh", mock.Anything, refresh).Return(&model.AccessTokenResponse{AccessToken: "fresh"}, nil)
	h := NewAuthHandler(auth)

	rr := httptest.NewRecorder()
	ErrorHandlingMiddleware(h.Refresh).ServeHTTP(rr, withPrincipal(httptest.NewRequest(http.MethodPost, "/auth/refresh", nil), refresh))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"access_token":"fresh"}`, rr.Body.String())
}

func TestAuthHandler_Logout(t *testing.T) {
	access := model.Principal{UserID: 3, JTI: "a-jti", Type: model.TokenTypeAccess}
	auth := new(mockAuthService)
	auth.On("Logout", mock.Anything, access).Return(nil)
	h := NewAuthHandler(auth)

	rr := httptest.NewRecorder()
	ErrorHandlingMiddleware(h.Logout).ServeHTTP(rr, withPrincipal(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), access))

	assert.Equal(t, http.StatusOK, rr.Code)
	auth.AssertExpectations(t)
}

func TestAuthHandler_RequestPasswordReset(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "known email", err: nil, expectedStatus: http.StatusAccepted},
		{name: "unknown email answers the same", err: service.ErrUserNotFound, expectedStatus: http.StatusAccepted},
		{name: "store down", err: service.ErrStoreUnavailable, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			auth := new(mockAuthService)
			auth.On("RequestPasswordReset", mock.Anything, "ada@example.com").Return(tc.err)
			h := NewAuthHandler(auth)

			rr := httptest.NewRecorder()
			ErrorHandlingMiddleware(h.RequestPasswordReset).ServeHTTP(rr,
				jsonRequest(http.MethodPost, "/auth/request_reset_password", `{"email":"ada@example.com"}`))

			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	reset := model.Principal{UserID: 3, JTI: "reset-jti", Type: model.TokenTypeResetPassword}
	auth := new(mockAuthService)
	auth.On("ResetPassword", mock.Anything, reset, "brandnewpw").Return(nil)
	h := NewAuthHandler(auth)

	req := withPrincipal(jsonRequest(http.MethodPost, "/auth/reset_password", `{"password":"brandnewpw"}`), reset)
	rr := httptest.NewRecorder()
	ErrorHandlingMiddleware(h.ResetPassword).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	auth.AssertExpectations(t)
}

func TestAuthHandler_CheckResetPasswordToken(t *testing.T) {
	access := model.Principal{UserID: 3, JTI: "a-jti", Type: model.TokenTypeAccess}
	auth := new(mockAuthService)
	auth.On("CheckResetToken", access).Return(service.ErrWrongTokenType)
	h := NewAuthHandler(auth)

	rr := httptest.NewRecorder()
	ErrorHandlingMiddleware(h.CheckResetPasswordToken).ServeHTTP(rr,
		withPrincipal(httptest.NewRequest(http.MethodGet, "/auth/check_reset_password_token", nil), access))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
