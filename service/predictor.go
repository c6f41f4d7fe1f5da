package service

import (
	"bytes"
	"context"
	"encoding/json"
	"face-insight-api/logger"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Predictor runs a face analysis model on an image given as a data URL.
type Predictor interface {
	Predict(ctx context.Context, modelType, image string) (json.RawMessage, error)
}

// RemotePredictor forwards prediction requests to the inference service.
// Outbound calls are throttled so one busy API instance cannot saturate it.
type RemotePredictor struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewRemotePredictor(baseURL string, timeout time.Duration, rps float64, burst int) *RemotePredictor {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RemotePredictor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (p *RemotePredictor) Predict(ctx context.Context, modelType, image string) (json.RawMessage, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("%w: no inference service configured", ErrPredictorUnavailable)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPredictorUnavailable, err)
	}

	body, err := json.Marshal(map[string]string{"image": image})
	if err != nil {
		return nil, err
	}
	endpoint := p.baseURL + "/predict/" + url.PathEscape(modelType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	log := logger.Log.WithFields(logrus.Fields{"model": modelType, "endpoint": endpoint})
	resp, err := p.client.Do(req)
	if err != nil {
		log.WithError(err).Error("Inference request failed")
		return nil, fmt.Errorf("%w: %w", ErrPredictorUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPredictorUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Error("Inference service returned an error")
		return nil, fmt.Errorf("%w: status %d", ErrPredictorUnavailable, resp.StatusCode)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid JSON response", ErrPredictorUnavailable)
	}
	return json.RawMessage(payload), nil
}
