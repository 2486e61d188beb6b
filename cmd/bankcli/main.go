// cmd/bankcli/main.go

// 互動式帳本命令列：讀取標準輸入的指令，操作後寫回 CSV 檔。

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"banksystem/internal/bank"
	"banksystem/internal/cli"
	"banksystem/internal/config"
	"banksystem/internal/logging"
	"banksystem/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	file := flag.String("file", "", "CSV data file (overrides config)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *file != "" {
		cfg.DataFile = *file
	}

	// 日誌輸出到 stderr，避免與互動輸出混在一起
	cfg.Log.OutputPaths = []string{"stderr"}
	if cfg.Log.Level == "" || cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := storage.NewCSVStore(cfg.DataFile)
	ledger, seeded, err := bank.Load(ctx, store, cfg.SeedAccounts)
	if err != nil {
		logger.Fatal("Failed to load data file", zap.String("path", store.Path()), zap.Error(err))
	}

	save := func(ctx context.Context) error {
		return store.Save(ctx, ledger.Snapshot())
	}
	if seeded {
		if err := save(ctx); err != nil {
			logger.Warn("Failed to save seeded ledger", zap.Error(err))
		}
	}

	fmt.Printf("=== Bank CLI (%s) ===\n", store.Path())
	sh := cli.NewShell(ledger, save, os.Stdout)
	sh.Exec(ctx, "help")

	if err := sh.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		logger.Error("Input error", zap.Error(err))
		os.Exit(1)
	}
}
