// internal/metrics/prometheus.go
//
// Prometheus 實作：指標由呼叫端註冊到自己的 registry，/metrics 再以 promhttp 輸出。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector 以 Prometheus 指標實作 Collector。
type PrometheusCollector struct {
	operations       *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	accounts         prometheus.Gauge

	persists       *prometheus.CounterVec
	persistLatency *prometheus.HistogramVec
	circuitState   *prometheus.GaugeVec
	circuitOpens   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewPrometheusCollector 建立收集器；namespace 為所有指標名稱的前綴。
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of ledger operations by kind and result",
			},
			[]string{"kind", "result"},
		),
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Ledger operation latency",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs ~ 0.26s
			},
			[]string{"kind"},
		),
		accounts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "accounts",
				Help:      "Current number of accounts in the ledger",
			},
		),
		persists: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_total",
				Help:      "Total number of snapshot loads and saves per store",
			},
			[]string{"store", "op", "status"},
		),
		persistLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "persist_duration_seconds",
				Help:      "Snapshot load/save latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms ~ 3s
			},
			[]string{"store", "op"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state per store (0=closed, 1=open, 2=half-open)",
			},
			[]string{"store"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens per store",
			},
			[]string{"store"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Register 將所有指標註冊到 registry，任一失敗即回傳錯誤。
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.operations,
		pc.operationLatency,
		pc.accounts,
		pc.persists,
		pc.persistLatency,
		pc.circuitState,
		pc.circuitOpens,
		pc.httpRequests,
		pc.httpLatency,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordOperation 記錄一次帳本操作的結果與耗時。
func (pc *PrometheusCollector) RecordOperation(kind string, result string, duration time.Duration) {
	pc.operations.WithLabelValues(kind, result).Inc()
	pc.operationLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordAccounts 設定目前帳戶數。
func (pc *PrometheusCollector) RecordAccounts(count int) {
	pc.accounts.Set(float64(count))
}

// RecordPersist 記錄一次快照讀取或寫入。
func (pc *PrometheusCollector) RecordPersist(store string, op string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.persists.WithLabelValues(store, op, status).Inc()
	pc.persistLatency.WithLabelValues(store, op).Observe(duration.Seconds())
}

// RecordCircuitState 記錄斷路器狀態，轉為開啟時累加次數。
func (pc *PrometheusCollector) RecordCircuitState(store string, state CircuitState) {
	pc.circuitState.WithLabelValues(store).Set(float64(state))
	if state == CircuitOpen {
		pc.circuitOpens.WithLabelValues(store).Inc()
	}
}

// RecordHTTPRequest 記錄一次 HTTP 請求。
func (pc *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	pc.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	pc.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}
