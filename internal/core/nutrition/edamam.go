package nutrition

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
	"recipe-recommender/internal/pkg/metrics"
	"recipe-recommender/internal/pkg/resilience"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RecipeTitle 送給供應商的分析標題
const RecipeTitle = "Recipe Analysis"

const upstreamName = "edamam"

// errServerStatus 供應商 5xx，計入斷路器失敗但仍回傳內容
var errServerStatus = errors.New("provider server error")

// Provider 營養分析供應商
type Provider interface {
	Analyze(ctx context.Context, lines []string) (body []byte, status int, err error)
}

// EdamamClient Edamam nutrition-details 客戶端
type EdamamClient struct {
	client  *resty.Client
	appID   string
	appKey  string
	breaker *resilience.Breaker
	metrics *metrics.Metrics
}

type analysisRequest struct {
	Title string   `json:"title"`
	Ingr  []string `json:"ingr"`
}

// NewEdamamClient 建立 Edamam 客戶端；只在連線失敗時重試
func NewEdamamClient(cfg config.NutritionConfig, breaker *resilience.Breaker, m *metrics.Metrics) *EdamamClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetHeader("Content-Type", "application/json")

	return &EdamamClient{
		client:  client,
		appID:   cfg.AppID,
		appKey:  cfg.AppKey,
		breaker: breaker,
		metrics: m,
	}
}

// Analyze 送出食材行並回傳原始回應內容與狀態碼
func (e *EdamamClient) Analyze(ctx context.Context, lines []string) ([]byte, int, error) {
	start := time.Now()

	var body []byte
	var status int
	call := func() error {
		resp, err := e.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"app_id":  e.appID,
				"app_key": e.appKey,
			}).
			SetBody(analysisRequest{Title: RecipeTitle, Ingr: lines}).
			Post("/api/nutrition-details")
		if err != nil {
			return fmt.Errorf("failed to send request to Edamam: %w", common.RedactURL(err))
		}

		body, status = resp.Body(), resp.StatusCode()
		if status >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	}

	var err error
	if e.breaker != nil {
		err = e.breaker.Execute(ctx, call)
	} else {
		err = call()
	}

	metricStatus := "ok"
	switch {
	case errors.Is(err, errServerStatus):
		metricStatus = "error"
		err = nil
	case errors.Is(err, resilience.ErrOpen):
		metricStatus = "rejected"
	case err != nil:
		metricStatus = "error"
	}
	e.metrics.ObserveUpstream(upstreamName, metricStatus, time.Since(start).Seconds())
	common.LogUpstreamCall(upstreamName, time.Since(start), err,
		zap.Int("status", status),
		zap.Int("lines", len(lines)),
	)

	if err != nil {
		return nil, 0, err
	}
	return body, status, nil
}
