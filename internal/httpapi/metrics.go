package httpapi

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mt5-bridge/internal/trade"
)

// Metrics 持有独立的 prometheus 注册表，避免测试之间重复注册。
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tradeOutcomes   *prometheus.CounterVec
}

var _ trade.Recorder = (*Metrics)(nil)

// NewMetrics 创建并注册全部指标。
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mt5bridge",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mt5bridge",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		tradeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mt5bridge",
			Name:      "trade_operations_total",
			Help:      "Trade operations by operation and result",
		}, []string{"operation", "result"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.tradeOutcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 返回底层注册表。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTrade 实现 trade.Recorder：成功记终端返回码含义，失败记错误编码。
func (m *Metrics) RecordTrade(_ context.Context, rec trade.Record) {
	result := "ok"
	switch {
	case rec.Outcome != nil && rec.Outcome.RetcodeMeaning != "":
		result = rec.Outcome.RetcodeMeaning
	case rec.Err != nil:
		result = trade.Code(rec.Err)
	}
	m.tradeOutcomes.WithLabelValues(string(rec.Operation), result).Inc()
}

func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
