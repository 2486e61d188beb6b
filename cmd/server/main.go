// cmd/server/main.go

// 帳本 HTTP 服務：提供帳戶建立、存提款、轉帳與批次交易的 RESTful API。
// 啟動時由儲存層載入快照（不存在則建立預設帳戶），
// 每次成功變更後寫入快照，結束時再保存一次。

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"banksystem/internal/bank"
	"banksystem/internal/config"
	"banksystem/internal/logging"
	"banksystem/internal/metrics"
	"banksystem/internal/server"
	"banksystem/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// .env 不存在時忽略
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	var (
		collector metrics.Collector = metrics.NoOpCollector{}
		registry                    = prometheus.NewRegistry()
	)
	if cfg.Metrics.Enabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		pc := metrics.NewPrometheusCollector(cfg.Metrics.Namespace)
		if err := pc.Register(registry); err != nil {
			logger.Fatal("Failed to register metrics", zap.Error(err))
		}
		collector = pc
	}

	ctx := context.Background()

	backend, err := storage.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logger.Fatal("Failed to open storage", zap.String("backend", cfg.Storage), zap.Error(err))
	}
	if c, ok := backend.(interface{ Close() error }); ok {
		defer c.Close()
	}
	store := storage.NewResilientStore(backend, cfg.ResilientConfig(), collector)

	ledger, seeded, err := bank.Load(ctx, store, cfg.SeedAccounts)
	if err != nil {
		logger.Fatal("Failed to load snapshot", zap.Error(err))
	}
	logger.Info("Ledger ready",
		zap.String("storage", store.Name()),
		zap.Int("accounts", ledger.Len()),
		zap.Bool("seeded", seeded),
	)
	collector.RecordAccounts(ledger.Len())

	// persist 在 server 持有帳本鎖時呼叫
	persist := func(ctx context.Context) error {
		return store.Save(ctx, ledger.Snapshot())
	}
	if seeded {
		if err := persist(ctx); err != nil {
			logger.Warn("Failed to save seeded ledger", zap.Error(err))
		}
	}

	s := server.NewServer(ledger, persist,
		server.WithMetrics(collector, registry),
		server.WithLogger(logger.Named("http")),
	)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("Bank server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 收到 SIGINT/SIGTERM 後停止接受請求，保存最後狀態再結束
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	var saveErr error
	s.Locked(func(l *bank.Ledger) {
		saveErr = store.Save(shutdownCtx, l.Snapshot())
	})
	if saveErr != nil {
		logger.Error("Final save failed", zap.Error(saveErr))
	}
	logger.Info("Server stopped")
}
