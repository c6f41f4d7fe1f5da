package handler

import (
	"context"
	"encoding/json"
	"face-insight-api/clock"
	"face-insight-api/common"
	"face-insight-api/logger"
	"face-insight-api/model"
	"face-insight-api/service"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

// IQuotaGate admits requests against per-model quotas.
type IQuotaGate interface {
	CheckAndConsume(ctx context.Context, identityKey, modelType string) (model.Admission, error)
	CheckAndConsumeTrial(ctx context.Context, identityKey, modelType string) (model.Admission, error)
}

// ITierLister lists the configured model tiers.
type ITierLister interface {
	Models() []model.ModelTier
}

type PredictionHandler struct {
	gate      IQuotaGate
	tiers     ITierLister
	predictor service.Predictor
	clock     clock.TimeSource
}

func NewPredictionHandler(gate IQuotaGate, tiers ITierLister, predictor service.Predictor, ts clock.TimeSource) *PredictionHandler {
	return &PredictionHandler{gate: gate, tiers: tiers, predictor: predictor, clock: ts}
}

type predictionResponse struct {
	Status    string          `json:"status"`
	Model     string          `json:"model"`
	Remaining int             `json:"remaining"`
	Result    json.RawMessage `json:"result"`
}

func (h *PredictionHandler) setRateLimitHeaders(w http.ResponseWriter, adm model.Admission) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(adm.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(adm.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(adm.ResetAt.Unix(), 10))
}

// admit applies the gate decision: headers on every outcome, 429 with
// Retry-After on denial.
func (h *PredictionHandler) admit(w http.ResponseWriter, adm model.Admission, err error) *common.AppError {
	if err != nil {
		return serviceError(err)
	}
	h.setRateLimitHeaders(w, adm)
	if !adm.Admitted {
		retryAfter := int64(math.Ceil(adm.ResetAt.Sub(h.clock.Now()).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
		return common.NewAppError(http.StatusTooManyRequests, "Quota exceeded for this model", nil)
	}
	return nil
}

func (h *PredictionHandler) predict(w http.ResponseWriter, r *http.Request, modelType string, adm model.Admission) *common.AppError {
	var req model.PredictRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	result, err := h.predictor.Predict(r.Context(), modelType, req.Image)
	if err != nil {
		return serviceError(err)
	}
	common.WriteJSON(w, http.StatusOK, predictionResponse{
		Status:    "success",
		Model:     modelType,
		Remaining: adm.Remaining,
		Result:    result,
	})
	return nil
}

// Predict godoc
// @Summary      Run a face analysis model
// @Description  Consumes one request from the caller's quota for the model before running it.
// @Tags         model
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        modelType path string true "Model type" Enums(gs, as, gas, gat, eagt, wrtv)
// @Param        request body model.PredictRequest true "Image as data URL"
// @Success      200  {object}  predictionResponse
// @Failure      401  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Failure      429  {object}  common.AppError
// @Failure      503  {object}  common.AppError
// @Router       /model/predict/{modelType} [post]
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) *common.AppError {
	p, appErr := principal(r)
	if appErr != nil {
		return appErr
	}
	modelType := r.PathValue("modelType")
	identity := service.UserIdentityKey(p.UserID)

	adm, err := h.gate.CheckAndConsume(r.Context(), identity, modelType)
	if appErr := h.admit(w, adm, err); appErr != nil {
		logger.Log.WithFields(logrus.Fields{"identity": identity, "model": modelType, "status": appErr.Code}).
			Info("Prediction request not admitted")
		return appErr
	}
	return h.predict(w, r, modelType, adm)
}

// Trial godoc
// @Summary      Try a face analysis model without an account
// @Description  Anonymous callers share a small daily allowance per client address.
// @Tags         model
// @Accept       json
// @Produce      json
// @Param        modelType path string true "Model type"
// @Param        request body model.PredictRequest true "Image as data URL"
// @Success      200  {object}  predictionResponse
// @Failure      404  {object}  common.AppError
// @Failure      429  {object}  common.AppError
// @Router       /model/trials/{modelType} [post]
func (h *PredictionHandler) Trial(w http.ResponseWriter, r *http.Request) *common.AppError {
	modelType := r.PathValue("modelType")
	identity := service.IPIdentityKey(clientIP(r))

	adm, err := h.gate.CheckAndConsumeTrial(r.Context(), identity, modelType)
	if appErr := h.admit(w, adm, err); appErr != nil {
		return appErr
	}
	return h.predict(w, r, modelType, adm)
}

// Tiers godoc
// @Summary      List model types and their quotas
// @Tags         model
// @Produce      json
// @Success      200  {array}  model.ModelTier
// @Router       /model/tiers [get]
func (h *PredictionHandler) Tiers(w http.ResponseWriter, r *http.Request) *common.AppError {
	common.WriteJSON(w, http.StatusOK, h.tiers.Models())
	return nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
