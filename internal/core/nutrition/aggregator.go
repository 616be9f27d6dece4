package nutrition

import (
	"recipe-recommender/internal/pkg/common"
)

// 追蹤的營養素代碼
const (
	CodeCalories = "ENERC_KCAL"
	CodeProtein  = "PROCNT"
	CodeFat      = "FAT"
	CodeCarbs    = "CHOCDF"
)

// 供應商未提供時的預設錯誤文字
const (
	DefaultErrorText   = "API request failed."
	DefaultMessageText = "Unknown issue from provider"
)

// Result 四項營養素，皆四捨五入到小數第二位
type Result struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// ErrorPayload 結構化錯誤回應
type ErrorPayload struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Aggregate 由供應商回應擷取營養素
//
// 狀態碼非 2xx、內容不是 JSON 物件或缺少 totalNutrients 時回傳錯誤內容。
func Aggregate(body []byte, status int) (*Result, *ErrorPayload) {
	var doc map[string]interface{}
	parseErr := common.ParseJSONBytes(body, &doc)

	nutrients, ok := doc["totalNutrients"].(map[string]interface{})
	if status < 200 || status > 299 || parseErr != nil || !ok {
		return nil, &ErrorPayload{
			Error:      stringField(doc, "error", DefaultErrorText),
			Message:    stringField(doc, "message", DefaultMessageText),
			StatusCode: status,
		}
	}

	return &Result{
		Calories: quantity(nutrients, CodeCalories),
		Protein:  quantity(nutrients, CodeProtein),
		Fat:      quantity(nutrients, CodeFat),
		Carbs:    quantity(nutrients, CodeCarbs),
	}, nil
}

// quantity 取得營養素數量；缺少、非數值或負數時為 0
func quantity(nutrients map[string]interface{}, code string) float64 {
	entry, ok := nutrients[code].(map[string]interface{})
	if !ok {
		return 0
	}
	v, ok := common.NumberValue(entry["quantity"])
	if !ok || v < 0 {
		return 0
	}
	return common.RoundTo(v, 2)
}

func stringField(doc map[string]interface{}, key, fallback string) string {
	if s, ok := doc[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
