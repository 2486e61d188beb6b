// internal/storage/resilient.go
//
// ResilientStore：以 sony/gobreaker 斷路器加上逾時包裝任何 Store。
// 後端連續失敗時快速回傳 ErrCircuitOpen，避免每次請求都卡在壞掉的資料庫上。
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"banksystem/internal/logging"
	"banksystem/internal/metrics"
)

// ResilientConfig 設定包在 Store 外層的斷路器與逾時。
type ResilientConfig struct {
	// Timeout 為每次 Load/Save 的上限；0 代表不限制。
	Timeout time.Duration

	// MaxRequests 為半開狀態下允許通過的請求數。
	MaxRequests uint32

	// Interval 為關閉狀態下清除計數的週期。
	Interval time.Duration

	// OpenTimeout 為開啟後轉為半開前的等待時間。
	OpenTimeout time.Duration

	// ConsecutiveFailures 連續失敗達此次數即開啟斷路器。
	ConsecutiveFailures uint32
}

// DefaultResilientConfig 回傳本機檔案與遠端資料庫皆適用的預設值。
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout:             5 * time.Second,
		MaxRequests:         1,
		Interval:            60 * time.Second,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// ResilientStore 以斷路器與逾時保護底層 Store。
// ErrNoSnapshot 屬於正常回應，不計為失敗。
type ResilientStore struct {
	store   Store
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// NewResilientStore 包裝 store；collector 為 nil 時不記錄指標。
func NewResilientStore(store Store, config ResilientConfig, collector metrics.Collector) *ResilientStore {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	logger := logging.L().Named("storage").Named(store.Name())

	rs := &ResilientStore{
		store:   store,
		timeout: config.Timeout,
		metrics: collector,
		logger:  logger,
	}

	threshold := config.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	rs.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        store.Name(),
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// 呼叫端取消不代表後端故障
			return err == nil || errors.Is(err, ErrNoSnapshot) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			rs.metrics.RecordCircuitState(name, state)
		},
	})

	return rs
}

// Name 回傳底層 Store 的名稱。
func (rs *ResilientStore) Name() string {
	return rs.store.Name()
}

// Unwrap 回傳底層 Store。
func (rs *ResilientStore) Unwrap() Store {
	return rs.store
}

// Load 經由斷路器讀取快照。
func (rs *ResilientStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := rs.execute(ctx, "load", func(ctx context.Context) error {
		var err error
		snap, err = rs.store.Load(ctx)
		return err
	})
	return snap, err
}

// Save 經由斷路器寫入快照。
func (rs *ResilientStore) Save(ctx context.Context, snap Snapshot) error {
	return rs.execute(ctx, "save", func(ctx context.Context) error {
		return rs.store.Save(ctx, snap)
	})
}

func (rs *ResilientStore) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()

	if rs.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rs.timeout)
		defer cancel()
	}

	_, err := rs.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = ErrCircuitOpen
	}

	ok := err == nil || errors.Is(err, ErrNoSnapshot)
	rs.metrics.RecordPersist(rs.store.Name(), op, ok, time.Since(start))
	if !ok {
		rs.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

// State 回傳目前斷路器狀態。
func (rs *ResilientStore) State() gobreaker.State {
	return rs.cb.State()
}
