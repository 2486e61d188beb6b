// internal/logging/logger.go
//
// Package logging 包裝 zap，供 server、cli 與 storage 共用同一套結構化日誌。
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 包裝 zap.Logger。
type Logger struct {
	*zap.Logger
}

// Config 為日誌設定。
type Config struct {
	// Level 為日誌等級：debug、info、warn 或 error。
	Level string `yaml:"level"`
	// Format 為 json 或 console。
	Format string `yaml:"format"`
	// OutputPaths 為輸出目的地。
	OutputPaths []string `yaml:"output_paths"`
	// Development 開啟開發模式（DPanic 會 panic）。
	Development bool `yaml:"development"`
}

// DefaultConfig 回傳正式環境的預設設定。
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stderr"},
	}
}

// DevelopmentConfig 回傳開發用設定。
func DevelopmentConfig() Config {
	return Config{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{"stderr"},
		Development: true,
	}
}

// NewLogger 依設定建立 Logger。
func NewLogger(config Config) (*Logger, error) {
	var encoderConfig zapcore.EncoderConfig
	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	format := config.Format
	if format == "" {
		format = "json"
	}
	outputs := config.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(ParseLevel(config.Level)),
		Development:       config.Development,
		DisableCaller:     !config.Development,
		DisableStacktrace: !config.Development,
		Encoding:          format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

// NewLoggerFromEnv 依環境變數建立 Logger：
//   - LOG_LEVEL：日誌等級（預設 info）
//   - LOG_FORMAT：輸出格式（預設 json）
//   - LOG_DEV：設為 true 時使用開發模式
func NewLoggerFromEnv() (*Logger, error) {
	return NewLogger(ApplyEnv(DefaultConfig()))
}

// ApplyEnv 以 LOG_LEVEL、LOG_FORMAT、LOG_DEV 覆寫 config。
func ApplyEnv(config Config) Config {
	if os.Getenv("LOG_DEV") == "true" {
		config = DevelopmentConfig()
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Format = format
	}
	return config
}

// NewNoOpLogger 建立丟棄所有輸出的 Logger。
func NewNoOpLogger() *Logger {
	return &Logger{zap.NewNop()}
}

// ParseLevel 將字串轉為 zapcore.Level，無法辨識時為 info。
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// With 建立帶有額外欄位的子 Logger。
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

// Named 建立具名的子 Logger。
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

var global = NewNoOpLogger()

// SetGlobal 設定全域 Logger。
func SetGlobal(logger *Logger) {
	global = logger
}

// L 回傳全域 Logger；未設定時為 no-op。
func L() *Logger {
	return global
}
