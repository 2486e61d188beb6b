// internal/metrics/metrics.go
//
// Package metrics 定義帳本、持久化與 HTTP 層共用的指標介面。
package metrics

import (
	"time"
)

// Collector 為帳本指標的收集介面，實作可輸出到 Prometheus 或其他後端。
type Collector interface {
	// 套用到帳本的操作；result 為 "ok" 或錯誤分類。
	RecordOperation(kind string, result string, duration time.Duration)
	RecordAccounts(count int)

	// 持久化
	RecordPersist(store string, op string, success bool, duration time.Duration)
	RecordCircuitState(store string, state CircuitState)

	// HTTP 傳輸層
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// CircuitState 為斷路器狀態。
type CircuitState int

const (
	// CircuitClosed 允許請求通過。
	CircuitClosed CircuitState = iota
	// CircuitOpen 阻擋所有請求。
	CircuitOpen
	// CircuitHalfOpen 放行少量請求以確認後端是否恢復。
	CircuitHalfOpen
)

// String 回傳狀態名稱。
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector 不做任何事，供未啟用指標時使用。
type NoOpCollector struct{}

func (NoOpCollector) RecordOperation(kind string, result string, duration time.Duration) {}

func (NoOpCollector) RecordAccounts(count int) {}

func (NoOpCollector) RecordPersist(store string, op string, success bool, duration time.Duration) {}

func (NoOpCollector) RecordCircuitState(store string, state CircuitState) {}

func (NoOpCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {}
