package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// RetrievalStages 各检索阶段的结果：hit / empty / error / timeout
	RetrievalStages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_stage_total",
			Help: "Content retrieval stage outcomes",
		},
		[]string{"stage", "outcome"},
	)

	RetrievalStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrieval_stage_duration_seconds",
			Help:    "Duration of content retrieval stages",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"stage"},
	)

	// PlanRepairs 学习计划修复次数，按修复类型区分
	PlanRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_repairs_total",
			Help: "Learning plan repairs applied to model output",
		},
		[]string{"kind"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_breaker_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(RetrievalStages)
	prometheus.MustRegister(RetrievalStageDuration)
	prometheus.MustRegister(PlanRepairs)
	prometheus.MustRegister(BreakerState)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
