// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new user.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RequestPasswordResetRequest starts the password reset flow.
type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest carries the new password; the reset token itself is
// presented as the bearer credential.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// PredictRequest carries the image to analyse as a data URL.
type PredictRequest struct {
	Image string `json:"image" validate:"required,startswith=data:image"`
}

// UpdateRoleRequest changes the role of a user.
type UpdateRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=admin user"`
}
