package nutrition

import (
	"context"
	"errors"
	"fmt"

	"recipe-recommender/internal/pkg/common"
	"recipe-recommender/internal/pkg/resilience"
)

// AnalysisError 營養分析失敗；Kind 為 common 中的預定義錯誤
type AnalysisError struct {
	Kind    error
	Payload *ErrorPayload
}

func (e *AnalysisError) Error() string {
	if e.Payload == nil {
		return e.Kind.Error()
	}
	if e.Payload.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind.Error(), e.Payload.Error, e.Payload.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Payload.Error)
}

// Unwrap 讓 errors.Is 可比對 Kind
func (e *AnalysisError) Unwrap() error {
	return e.Kind
}

// Analyzer 串接正規化、供應商與彙整
type Analyzer struct {
	provider Provider
}

// NewAnalyzer 建立分析器
func NewAnalyzer(provider Provider) *Analyzer {
	return &Analyzer{provider: provider}
}

// Analyze 分析食材行的四項營養素
func (a *Analyzer) Analyze(ctx context.Context, lines []string) (*Result, error) {
	normalized, err := Normalize(lines)
	if err != nil {
		return nil, &AnalysisError{
			Kind:    common.ErrEmptyInput,
			Payload: &ErrorPayload{Error: common.ErrEmptyInput.Message},
		}
	}

	body, status, err := a.provider.Analyze(ctx, normalized)
	if err != nil {
		return nil, &AnalysisError{
			Kind:    common.ErrTransport,
			Payload: &ErrorPayload{Error: "Internal Server Error: " + transportCause(err)},
		}
	}

	result, payload := Aggregate(body, status)
	if payload != nil {
		return nil, &AnalysisError{Kind: common.ErrUpstreamAPI, Payload: payload}
	}
	return result, nil
}

// transportCause 取最內層錯誤訊息（不含請求 URL）
func transportCause(err error) string {
	if errors.Is(err, resilience.ErrOpen) {
		return resilience.ErrOpen.Error()
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
