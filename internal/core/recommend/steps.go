package recommend

import "strings"

// Step 編號後的料理步驟
type Step struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// FormatSteps 將以 ". " 串接的步驟拆成編號清單
func FormatSteps(instructions string) []Step {
	var steps []Step
	for _, s := range strings.Split(instructions, ". ") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		steps = append(steps, Step{Number: len(steps) + 1, Text: s})
	}
	return steps
}

// WithSteps 為每筆推薦附上步驟清單
func WithSteps(recs []Recommendation) []Recommendation {
	for i := range recs {
		recs[i].Steps = FormatSteps(recs[i].Instructions)
	}
	return recs
}
