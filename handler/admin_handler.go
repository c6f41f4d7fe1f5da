package handler

import (
	"context"
	"face-insight-api/common"
	"face-insight-api/model"
	"net/http"
)

// IQuotaAdmin inspects and resets quota records.
type IQuotaAdmin interface {
	Usage(ctx context.Context, identityKey, modelType string) (model.QuotaRecord, error)
	Reset(ctx context.Context, identityKey, modelType string) error
	ListUsage(ctx context.Context) ([]model.QuotaRecord, error)
}

type AdminHandler struct {
	quotas IQuotaAdmin
}

func NewAdminHandler(quotas IQuotaAdmin) *AdminHandler {
	return &AdminHandler{quotas: quotas}
}

// ListQuotas godoc
// @Summary      List tracked quota records
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   model.QuotaRecord
// @Failure      403  {object}  common.AppError
// @Router       /admin/quotas [get]
func (h *AdminHandler) ListQuotas(w http.ResponseWriter, r *http.Request) *common.AppError {
	records, err := h.quotas.ListUsage(r.Context())
	if err != nil {
		return serviceError(err)
	}
	if records == nil {
		records = []model.QuotaRecord{}
	}
	common.WriteJSON(w, http.StatusOK, records)
	return nil
}

// GetQuota godoc
// @Summary      Show one identity's usage of a model
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        identity  path string true "Identity key, e.g. user:42 or ip:203.0.113.7"
// @Param        modelType path string true "Model type"
// @Success      200  {object}  model.QuotaRecord
// @Failure      404  {object}  common.AppError
// @Router       /admin/quotas/{identity}/{modelType} [get]
func (h *AdminHandler) GetQuota(w http.ResponseWriter, r *http.Request) *common.AppError {
	rec, err := h.quotas.Usage(r.Context(), r.PathValue("identity"), r.PathValue("modelType"))
	if err != nil {
		return serviceError(err)
	}
	common.WriteJSON(w, http.StatusOK, rec)
	return nil
}

// ResetQuota godoc
// @Summary      Clear one identity's usage of a model
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        identity  path string true "Identity key"
// @Param        modelType path string true "Model type"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  common.AppError
// @Router       /admin/quotas/{identity}/{modelType}/reset [post]
func (h *AdminHandler) ResetQuota(w http.ResponseWriter, r *http.Request) *common.AppError {
	if err := h.quotas.Reset(r.Context(), r.PathValue("identity"), r.PathValue("modelType")); err != nil {
		return serviceError(err)
	}
	message(w, http.StatusOK, "Quota reset")
	return nil
}
