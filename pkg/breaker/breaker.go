package breaker

import (
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/pkg/logger"
	"edu_copilot_backend/pkg/monitoring"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// New 创建外部服务熔断器，连续失败达到阈值后打开
func New(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker[any] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			monitoring.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	}

	return gobreaker.NewCircuitBreaker[any](settings)
}
