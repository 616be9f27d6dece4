// Package resilience 外部服務呼叫的斷路器
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-recommender/internal/pkg/common"
	"recipe-recommender/internal/pkg/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrOpen 斷路器開啟或半開狀態下請求過多
var ErrOpen = errors.New("circuit breaker open")

// excluded 不計入斷路器失敗的錯誤
type excluded struct {
	err error
}

func (e *excluded) Error() string { return e.err.Error() }

func (e *excluded) Unwrap() error { return e.err }

// Exclude 標記不代表服務異常的錯誤（例如上游 4xx），斷路器視為成功
func Exclude(err error) error {
	if err == nil {
		return nil
	}
	return &excluded{err: err}
}

// BreakerSettings 斷路器參數
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// Breaker 以 gobreaker 包裝外部呼叫
type Breaker struct {
	name    string
	cb      *gobreaker.CircuitBreaker[struct{}]
	metrics *metrics.Metrics
}

// NewBreaker 建立斷路器；連續失敗達門檻即開啟
func NewBreaker(name string, settings BreakerSettings, m *metrics.Metrics) *Breaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = 1
	}

	b := &Breaker{name: name, metrics: m}
	m.SetBreakerState(name, 0)

	b.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			var ex *excluded
			return err == nil || errors.As(err, &ex)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			common.LogWarn("斷路器狀態變更",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			b.metrics.SetBreakerState(name, stateValue(to))
		},
	})
	return b
}

// Execute 在斷路器保護下執行 fn；開啟時回傳 ErrOpen 包裝的錯誤
//
// ctx 已取消或逾時造成的失敗屬於呼叫端，不計入失敗次數。
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		err := fn()
		if err != nil && ctx.Err() != nil {
			return struct{}{}, Exclude(err)
		}
		return struct{}{}, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrOpen, b.name)
	}
	if ex, ok := err.(*excluded); ok {
		return ex.err
	}
	return err
}

// State 目前狀態
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Name 斷路器名稱
func (b *Breaker) Name() string {
	return b.name
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
