// internal/storage/jsonstore.go
//
// 提供 JSON 快照 (Snapshot) 的序列化與反序列化實作。
// 與 CSV 相比多保存了 _meta（版本、時間戳、備註），方便日後格式升級。
// 寫入同樣採「先寫 .tmp 再 rename」的原子策略。
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"
)

// JSONStore 將快照保存為縮排 JSON 檔。
type JSONStore struct {
	path string
	now  func() time.Time
}

// NewJSONStore 建立指向 path 的 JSON store。
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path, now: time.Now}
}

// Name implements Store.
func (s *JSONStore) Name() string { return BackendJSON }

// Load 讀取 JSON 快照；檔案不存在回傳 ErrNoSnapshot，格式錯誤則回傳解析錯誤。
func (s *JSONStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, err
	}
	defer f.Close()
	err = json.NewDecoder(f).Decode(&snap)
	return snap, err
}

// Save 設定 Meta.Storage 與當前時間戳後寫入檔案。
func (s *JSONStore) Save(ctx context.Context, snap Snapshot) error {
	snap.Meta.Storage = BackendJSON
	snap.Meta.Timestamp = s.now()
	if snap.Meta.Version == 0 {
		snap.Meta.Version = SnapshotVersion
	}
	return writeAtomic(s.path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	})
}
