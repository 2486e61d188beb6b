// internal/bank/ledger.go

// Package bank 定義帳本 (Ledger)：帳戶名稱 → 餘額 的對應表，以及其基本操作。
// Ledger 是唯一可以直接修改餘額的元件；交易 (transaction 套件) 只透過這裡的方法動作。
// 每個方法都是同步、單步完成的：不論成功或失敗，都不會留下半套的內部狀態。
//
// Ledger 本身不加鎖，假設同一時間只有一個擁有者；需要併發存取的呼叫端
// （例如 HTTP server）必須自行在外部序列化所有呼叫。
package bank

import (
	"maps"

	"banksystem/internal/storage"
)

// Ledger 為聚合根 (Aggregate Root)：帳戶名稱唯一，迭代順序不具意義。
type Ledger struct {
	accounts map[string]int64
}

// NewLedger 建立空白帳本。
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[string]int64)}
}

// AddUser 新增餘額為 0 的帳戶並回傳 (0, true)。
// 若帳戶已存在則不覆寫，回傳 (0, false)。
func (l *Ledger) AddUser(name string) (int64, bool) {
	if _, ok := l.accounts[name]; ok {
		return 0, false
	}
	l.accounts[name] = 0
	return 0, true
}

// RemoveUser 刪除帳戶並回傳刪除當下的餘額；不存在時回傳 (0, false) 且無副作用。
func (l *Ledger) RemoveUser(name string) (int64, bool) {
	bal, ok := l.accounts[name]
	if !ok {
		return 0, false
	}
	delete(l.accounts, name)
	return bal, true
}

// Balance 查詢目前餘額（純查詢）。
func (l *Ledger) Balance(name string) (int64, bool) {
	bal, ok := l.accounts[name]
	return bal, ok
}

// Has 回報帳戶是否存在。
func (l *Ledger) Has(name string) bool {
	_, ok := l.accounts[name]
	return ok
}

// Len 回傳帳戶數。
func (l *Ledger) Len() int {
	return len(l.accounts)
}

// Deposit 存款：帳戶不存在回傳 ErrNotFound。
// 金額不做上下限或溢位檢查（可為負數），是否允許由上層決定。
func (l *Ledger) Deposit(name string, amount int64) error {
	bal, ok := l.accounts[name]
	if !ok {
		return ErrNotFound
	}
	l.accounts[name] = bal + amount
	return nil
}

// Withdraw 提款：不存在回傳 ErrNotFound；餘額小於金額回傳 ErrInsufficient，餘額不變。
func (l *Ledger) Withdraw(name string, amount int64) error {
	bal, ok := l.accounts[name]
	if !ok {
		return ErrNotFound
	}
	if bal < amount {
		return ErrInsufficient
	}
	l.accounts[name] = bal - amount
	return nil
}

// All 回傳所有 (名稱, 餘額) 的快照，不保證順序。
func (l *Ledger) All() []Account {
	out := make([]Account, 0, len(l.accounts))
	for name, bal := range l.accounts {
		out = append(out, Account{Name: name, Balance: bal})
	}
	return out
}

// Checkpoint 複製目前所有餘額。
func (l *Ledger) Checkpoint() Checkpoint {
	return Checkpoint{accounts: maps.Clone(l.accounts)}
}

// Rollback 將帳本整體還原為 c 的狀態，包含在 c 之後新增或刪除的帳戶。
func (l *Ledger) Rollback(c Checkpoint) {
	l.accounts = maps.Clone(c.accounts)
	if l.accounts == nil {
		l.accounts = make(map[string]int64)
	}
}

// Snapshot 匯出帳本狀態到可持久化的 storage.Snapshot。
func (l *Ledger) Snapshot() storage.Snapshot {
	s := storage.Snapshot{
		Meta: storage.Meta{Version: storage.SnapshotVersion},
	}
	for _, a := range l.All() {
		s.Accounts = append(s.Accounts, storage.PersistAccount{Name: a.Name, Balance: a.Balance})
	}
	return s
}

// Restore 由快照批次載入帳戶：每筆紀錄先 AddUser 再 Deposit，
// 與逐筆手動建立的結果相同（重複名稱的餘額會累加）。
func (l *Ledger) Restore(s storage.Snapshot) {
	for _, pa := range s.Accounts {
		l.AddUser(pa.Name)
		_ = l.Deposit(pa.Name, pa.Balance)
	}
}

// Seed 建立一組餘額為 0 的預設帳戶，已存在者略過；回傳實際新增的數量。
func (l *Ledger) Seed(names ...string) int {
	n := 0
	for _, name := range names {
		if _, ok := l.AddUser(name); ok {
			n++
		}
	}
	return n
}
