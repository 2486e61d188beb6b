// internal/storage/store.go
//
// Store 介面與後端選擇。所有後端共用同一個語意：
//   - Load 在尚未保存過任何快照時回傳 ErrNoSnapshot（不是真正的失敗，呼叫端可自行植入預設帳戶）。
//   - Save 以整份快照取代先前內容。
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNoSnapshot 代表尚未有任何已保存的快照（檔案不存在，或資料庫從未保存過）。
	ErrNoSnapshot = errors.New("storage: no snapshot")

	// ErrCircuitOpen 代表後端連續失敗，斷路器已開啟。
	ErrCircuitOpen = errors.New("storage: circuit breaker open")

	// ErrUnknownBackend 代表設定了不支援的後端名稱。
	ErrUnknownBackend = errors.New("storage: unknown backend")

	// ErrInvalidName 代表帳戶名稱無法以 CSV 記錄原樣保存。
	ErrInvalidName = errors.New("invalid account name")
)

// Store 為快照持久化的抽象。
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Name() string
}

// Open 接受的後端名稱。
const (
	BackendCSV      = "csv"
	BackendJSON     = "json"
	BackendPostgres = "postgres"
)

// Options 為 Open 的參數；只有被選中的後端會用到對應欄位。
type Options struct {
	Backend  string
	Path     string
	Postgres PostgresConfig
}

// Open 依 Options.Backend 建立對應的 Store。
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendCSV, "":
		return NewCSVStore(opts.Path), nil
	case BackendJSON:
		return NewJSONStore(opts.Path), nil
	case BackendPostgres:
		pg, err := NewPostgresStore(ctx, opts.Postgres)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// writeAtomic 先寫入 path+".tmp"，完成後以 os.Rename 取代正式檔案，
// 寫入中斷時原檔不會損壞。
func writeAtomic(path string, write func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
