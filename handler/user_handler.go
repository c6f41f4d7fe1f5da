package handler

import (
	"context"
	"face-insight-api/common"
	"face-insight-api/model"
	"net/http"
	"strconv"
)

// IUserService is the user administration surface.
type IUserService interface {
	UpdateUserRole(ctx context.Context, userID int64, newRole model.Role) error
}

type UserHandler struct {
	users IUserService
}

func NewUserHandler(users IUserService) *UserHandler {
	return &UserHandler{users: users}
}

// UpdateUserRole godoc
// @Summary      Change a user's role
// @Description  Every credential the user holds is revoked so the new role applies from the next login.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                     true "User ID"
// @Param        request body model.UpdateRoleRequest true "New role"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /admin/users/{id}/role [patch]
func (h *UserHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid user ID", nil)
	}

	var req model.UpdateRoleRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	if err := h.users.UpdateUserRole(r.Context(), userID, req.Role); err != nil {
		return serviceError(err)
	}
	message(w, http.StatusOK, "User role updated")
	return nil
}
