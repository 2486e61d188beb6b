// internal/storage/csvstore.go
//
// CSV 快照：每個帳戶一行 "name,balance"（UTF-8、逗號分隔、換行結尾）。
// 讀取規則：
//   - 每行先去除前後空白，再以逗號切分。
//   - 欄位數不是 2 的行直接略過。
//   - 餘額不是整數時視為 0，不讓整份載入失敗。
//   - 檔案不存在回傳 ErrNoSnapshot。
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"banksystem/internal/logging"
)

// CSVStore 將快照保存為 CSV 檔。
type CSVStore struct {
	path   string
	logger *logging.Logger
}

// NewCSVStore 建立指向 path 的 CSV store。
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path, logger: logging.L().Named("storage.csv")}
}

// Name implements Store.
func (s *CSVStore) Name() string { return BackendCSV }

// Path 回傳檔案路徑。
func (s *CSVStore) Path() string { return s.path }

// Load 讀取 CSV 快照。
func (s *CSVStore) Load(ctx context.Context) (Snapshot, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	accounts, skipped, err := ReadRecords(f)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	if skipped > 0 {
		s.logger.Warn("skipped malformed lines", zap.String("path", s.path), zap.Int("skipped", skipped))
	}

	info, _ := f.Stat()
	meta := Meta{Storage: BackendCSV, Version: SnapshotVersion}
	if info != nil {
		meta.Timestamp = info.ModTime()
	}
	return Snapshot{Meta: meta, Accounts: accounts}, nil
}

// Save 以原子方式覆寫 CSV 檔。
func (s *CSVStore) Save(ctx context.Context, snap Snapshot) error {
	return writeAtomic(s.path, func(f *os.File) error {
		return WriteRecords(f, snap.Accounts)
	})
}

// ReadRecords 逐行解析 "name,balance"，回傳解析出的帳戶與被略過的行數。
// 行長度沒有上限，過長的行與其他格式錯誤的行一樣處理。
func ReadRecords(r io.Reader) ([]PersistAccount, int, error) {
	var (
		out     []PersistAccount
		skipped int
	)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return out, skipped, err
		}
		if line == "" && err != nil {
			break
		}

		parts := strings.Split(strings.TrimSpace(line), ",")
		if len(parts) != 2 {
			skipped++
		} else {
			bal, perr := strconv.ParseInt(parts[1], 10, 64)
			if perr != nil {
				bal = 0
			}
			out = append(out, PersistAccount{Name: parts[0], Balance: bal})
		}

		if err != nil {
			break
		}
	}
	return out, skipped, nil
}

// WriteRecords 將帳戶逐行寫出；名稱無法被 ReadRecords 原樣讀回時回傳 ErrInvalidName，不寫出任何內容。
func WriteRecords(w io.Writer, accounts []PersistAccount) error {
	for _, a := range accounts {
		if !representable(a.Name) {
			return fmt.Errorf("%w: %q", ErrInvalidName, a.Name)
		}
	}
	bw := bufio.NewWriter(w)
	for _, a := range accounts {
		if _, err := fmt.Fprintf(bw, "%s,%d\n", a.Name, a.Balance); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ValidateName 檢查帳戶名稱可否安全保存：不可為空、不可含逗號或換行、前後不可有空白。
// 建立帳戶的入口（HTTP、CLI）都必須先通過此檢查。
func ValidateName(name string) error {
	if name == "" || !representable(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func representable(name string) bool {
	return !strings.ContainsAny(name, ",\r\n") && strings.TrimSpace(name) == name
}
