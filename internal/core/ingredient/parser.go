package ingredient

import (
	"sort"
	"strings"
)

// Set 正規化後的食材 token 集合
type Set map[string]struct{}

// Parse 將逗號分隔的食材字串轉為 token 集合
//
// 每個片段去除前後空白並轉小寫，空片段忽略。使用者輸入與食譜食材都走這一條路徑。
func Parse(raw string) Set {
	set := make(Set)
	for _, part := range strings.Split(raw, ",") {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}

// Overlap 兩個集合的交集大小
func Overlap(a, b Set) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for token := range a {
		if _, ok := b[token]; ok {
			n++
		}
	}
	return n
}

// Len 集合大小
func (s Set) Len() int {
	return len(s)
}

// Has 是否包含 token
func (s Set) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Sorted 依字母順序列出 token
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for token := range s {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}
