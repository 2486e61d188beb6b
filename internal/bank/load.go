// internal/bank/load.go

package bank

import (
	"context"
	"errors"

	"banksystem/internal/storage"
)

// Load 由 store 讀取快照建立帳本。
// 尚未有任何快照時（storage.ErrNoSnapshot）以 seed 建立餘額為 0 的帳戶，seeded 回傳 true。
func Load(ctx context.Context, store storage.Store, seed []string) (l *Ledger, seeded bool, err error) {
	l = NewLedger()
	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		l.Seed(seed...)
		return l, true, nil
	case err != nil:
		return nil, false, err
	}
	l.Restore(snap)
	return l, false, nil
}
