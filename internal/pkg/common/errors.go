package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Error   string `json:"error"`             // 錯誤信息
	Code    string `json:"code"`              // 錯誤代碼
	Details string `json:"details,omitempty"` // 詳細信息（僅在 debug 模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 讓 errors.Is / errors.As 可以穿透
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeEmptyInput      = "EMPTY_INPUT"       // 400
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"   // 408
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError    = "INTERNAL_ERROR"          // 500
	ErrCodeTransport        = "TRANSPORT_ERROR"         // 500
	ErrCodeUpstreamAPI      = "UPSTREAM_API_ERROR"      // 502
	ErrCodeRetrievalService = "RETRIEVAL_SERVICE_ERROR" // 503
	ErrCodeGatewayTimeout   = "GATEWAY_TIMEOUT"         // 504

	ErrCodeIndexLoad       = "INDEX_LOAD_ERROR"
	ErrCodeBodyTooLarge    = "BODY_TOO_LARGE"
	ErrCodeServiceNotReady = "SERVICE_NOT_READY"
)

// 預定義錯誤
var (
	// ErrIndexLoad 索引檔載入失敗，啟動時致命
	ErrIndexLoad = NewError(ErrCodeIndexLoad, "failed to load recipe index", http.StatusInternalServerError, nil)
	// ErrRetrievalService embedding 或搜尋後端不可用
	ErrRetrievalService = NewError(ErrCodeRetrievalService, "recipe retrieval service unavailable", http.StatusServiceUnavailable, nil)
	// ErrEmptyInput 營養分析的食材清單清理後為空
	ErrEmptyInput = NewError(ErrCodeEmptyInput, "Ingredient list is empty.", http.StatusBadRequest, nil)
	// ErrUpstreamAPI 營養供應商回傳失敗狀態或無法解析的內容
	ErrUpstreamAPI = NewError(ErrCodeUpstreamAPI, "nutrition provider request failed", http.StatusBadGateway, nil)
	// ErrTransport 呼叫營養供應商時的網路錯誤
	ErrTransport = NewError(ErrCodeTransport, "nutrition provider unreachable", http.StatusInternalServerError, nil)
)

// StatusOf 取得錯誤對應的 HTTP 狀態碼與錯誤代碼
func StatusOf(err error) (int, string) {
	var custom *CustomError
	if errors.As(err, &custom) {
		return custom.Status, custom.Code
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}
