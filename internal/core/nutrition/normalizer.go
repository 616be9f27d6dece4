// Package nutrition 營養分析：食材行正規化、供應商呼叫與營養素彙整
package nutrition

import (
	"strings"

	"recipe-recommender/internal/pkg/common"
)

// QuantityKeywords 視為已帶有份量的關鍵字（子字串比對）
var QuantityKeywords = []string{"slice", "cup", "tbsp", "tsp", "gram", "ml", "piece", "egg", "banana"}

// DefaultQuantity 缺少份量時補上的前綴
const DefaultQuantity = "1 piece "

// Normalize 將使用者輸入的食材行轉為供應商可解析的格式
//
// 每行去除空白並轉小寫，空行略過；沒有任何份量關鍵字時補上預設份量。
func Normalize(lines []string) ([]string, error) {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if hasQuantity(line) {
			out = append(out, line)
		} else {
			out = append(out, DefaultQuantity+line)
		}
	}

	if len(out) == 0 {
		return nil, common.ErrEmptyInput
	}
	return out, nil
}

func hasQuantity(line string) bool {
	for _, kw := range QuantityKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}
