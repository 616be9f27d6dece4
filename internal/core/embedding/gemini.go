package embedding

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

// Gemini embedding 任務類型
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// MaxBatchSize 單次 batchEmbedContents 的最大筆數
const MaxBatchSize = 100

const (
	upstreamName = "gemini"
	apiKeyHeader = "x-goog-api-key"
)

// GeminiClient Gemini embedding REST 客戶端
type GeminiClient struct {
	client  *resty.Client
	model   string
	breaker *resilience.Breaker
	metrics *metrics.Metrics
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType,omitempty"`
}

type values struct {
	Values []float32 `json:"values"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiClient 建立 Gemini 客戶端；breaker 與 m 可為 nil
func NewGeminiClient(cfg config.EmbeddingConfig, breaker *resilience.Breaker, m *metrics.Metrics) *GeminiClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader(apiKeyHeader, cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	return &GeminiClient{
		client:  client,
		model:   model,
		breaker: breaker,
		metrics: m,
	}
}

// Model 使用的模型名稱
func (g *GeminiClient) Model() string {
	return g.model
}

// EmbedQuery 取得查詢文字的向量
func (g *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{
		Model:    g.model,
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: TaskRetrievalQuery,
	}

	var result struct {
		Embedding values `json:"embedding"`
	}
	if err := g.post(ctx, ":embedContent", req, &result); err != nil {
		return nil, err
	}
	if len(result.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini returned an empty embedding")
	}
	return result.Embedding.Values, nil
}

// EmbedDocuments 批次取得文件向量，順序與輸入相同
func (g *GeminiClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit %d", len(texts), MaxBatchSize)
	}

	requests := make([]embedRequest, len(texts))
	for i, text := range texts {
		requests[i] = embedRequest{
			Model:    g.model,
			Content:  content{Parts: []part{{Text: text}}},
			TaskType: TaskRetrievalDocument,
		}
	}

	var result struct {
		Embeddings []values `json:"embeddings"`
	}
	if err := g.post(ctx, ":batchEmbedContents", map[string]interface{}{"requests": requests}, &result); err != nil {
		return nil, err
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range result.Embeddings {
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

// post 在斷路器保護下送出請求並解析回應
func (g *GeminiClient) post(ctx context.Context, method string, body, out interface{}) error {
	start := time.Now()
	call := func() error {
		resp, err := g.client.R().
			SetContext(ctx).
			SetBody(body).
			Post("/" + g.model + method)
		if err != nil {
			return fmt.Errorf("failed to send request to Gemini: %w", common.RedactURL(err))
		}

		if resp.StatusCode() != http.StatusOK {
			return statusError(resp)
		}

		if err := common.ParseJSONBytes(resp.Body(), out); err != nil {
			return fmt.Errorf("failed to parse Gemini response: %w", err)
		}
		return nil
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Execute(ctx, call)
	} else {
		err = call()
	}

	status := "ok"
	switch {
	case errors.Is(err, resilience.ErrOpen):
		status = "rejected"
	case err != nil:
		status = "error"
	}
	g.metrics.ObserveUpstream(upstreamName, status, time.Since(start).Seconds())
	common.LogUpstreamCall(upstreamName, time.Since(start), err, zap.String("method", method))
	return err
}

// statusError 將非 200 回應轉為錯誤；4xx（429 除外）屬於請求本身的問題，不計入斷路器
func statusError(resp *resty.Response) error {
	message := resp.String()
	var apiErr apiError
	if perr := common.ParseJSONBytes(resp.Body(), &apiErr); perr == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}
	err := fmt.Errorf("gemini API returned %d: %s", resp.StatusCode(), message)

	code := resp.StatusCode()
	if code >= http.StatusBadRequest && code < http.StatusInternalServerError && code != http.StatusTooManyRequests {
		return resilience.Exclude(err)
	}
	return err
}
