package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-recommender/internal/core/nutrition"
	"recipe-recommender/internal/core/recommend"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecommender struct {
	delay time.Duration
}

func (f fakeRecommender) Recommend(ctx context.Context, raw string) ([]recommend.Recommendation, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []recommend.Recommendation{{Recipe: "Omelette", Ingredients: raw, Instructions: "beat. fry"}}, nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(context.Context, []string) (*nutrition.Result, error) {
	return &nutrition.Result{Calories: 100}, nil
}

type fakeIndex struct{}

func (fakeIndex) Len() int       { return 3 }
func (fakeIndex) Dimension() int { return 2 }
func (fakeIndex) Metric() string { return "cosine" }
func (fakeIndex) Model() string  { return "m" }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Version: "test", Debug: true},
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 10,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, deps Dependencies) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if deps.Recommender == nil {
		deps.Recommender = fakeRecommender{}
	}
	if deps.Analyzer == nil {
		deps.Analyzer = fakeAnalyzer{}
	}
	router, err := SetupRouter(cfg, deps)
	require.NoError(t, err)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRoutesMountedAtRootAndV1(t *testing.T) {
	router := newTestRouter(t, testConfig(), Dependencies{Index: fakeIndex{}})

	for _, prefix := range []string{"", "/api/v1"} {
		w := do(router, http.MethodPost, prefix+"/recommend", `{"ingredients":"egg"}`)
		assert.Equal(t, http.StatusOK, w.Code, prefix)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		w = do(router, http.MethodPost, prefix+"/calorie", `{"ingredients":["egg"]}`)
		assert.Equal(t, http.StatusOK, w.Code, prefix)
	}

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/live", "").Code)
}

func TestSetupRouterRequiresServices(t *testing.T) {
	_, err := SetupRouter(testConfig(), Dependencies{})
	assert.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	router := newTestRouter(t, testConfig(), Dependencies{Metrics: m})

	do(router, http.MethodPost, "/recommend", `{"ingredients":"egg"}`)
	w := do(router, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `http_requests_total{method="POST",path="/recommend",status="200"} 1`))
}

func TestBodySizeLimit(t *testing.T) {
	router := newTestRouter(t, testConfig(), Dependencies{})

	big := `{"ingredients":"` + strings.Repeat("a", 2048) + `"}`
	w := do(router, http.MethodPost, "/recommend", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequestTimeout = 20 * time.Millisecond
	router := newTestRouter(t, cfg, Dependencies{Recommender: fakeRecommender{delay: time.Second}})

	w := do(router, http.MethodPost, "/recommend", `{"ingredients":"egg"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}
	router := newTestRouter(t, cfg, Dependencies{})

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/recommend", `{"ingredients":"a"}`).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/recommend", `{"ingredients":"b"}`).Code)
	w := do(router, http.MethodPost, "/recommend", `{"ingredients":"c"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 健康檢查不受限流
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/live", "").Code)
}

func TestDeduplication(t *testing.T) {
	cfg := testConfig()
	cfg.DedupWindow = time.Minute
	router := newTestRouter(t, cfg, Dependencies{})

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/recommend", `{"ingredients":"egg"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodPost, "/recommend", `{"ingredients":"egg"}`).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/recommend", `{"ingredients":"milk"}`).Code)
}
