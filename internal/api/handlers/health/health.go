package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// IndexInfo 索引狀態
type IndexInfo interface {
	Len() int
	Dimension() int
	Metric() string
	Model() string
}

// StatsProvider 提供快取統計
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Index     *IndexStatus           `json:"index,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// IndexStatus 索引狀態
type IndexStatus struct {
	Documents int    `json:"documents"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Model     string `json:"model"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	index   IndexInfo
	cache   StatsProvider
}

// NewHandler 建立處理器；index 與 cache 可為 nil
func NewHandler(version string, index IndexInfo, cache StatsProvider) *Handler {
	return &Handler{version: version, index: index, cache: cache}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Index: h.indexStatus(),
	}
	if h.cache != nil {
		response.Cache = h.cache.GetStats()
	}

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：索引已載入才可接受請求
func (h *Handler) ReadinessCheck(c *gin.Context) {
	status := h.indexStatus()
	if status == nil || status.Documents == 0 {
		c.JSON(http.StatusServiceUnavailable, common.ErrorResponse{
			Error: "recipe index not loaded",
			Code:  common.ErrCodeServiceNotReady,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"documents": status.Documents,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (h *Handler) indexStatus() *IndexStatus {
	if h.index == nil {
		return nil
	}
	return &IndexStatus{
		Documents: h.index.Len(),
		Dimension: h.index.Dimension(),
		Metric:    h.index.Metric(),
		Model:     h.index.Model(),
	}
}
