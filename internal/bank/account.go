// internal/bank/account.go
//
// 本檔定義 Account 與 Checkpoint 結構，不含任何 HTTP 或儲存細節。

package bank

// Account 為 Ledger.All 回傳的一組 (名稱, 餘額)。
type Account struct {
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

// Checkpoint 為帳本在某一時間點的完整餘額拷貝，
// 供 Rollback 還原使用；取得後與帳本不再共享任何狀態。
type Checkpoint struct {
	accounts map[string]int64
}

// Len 回傳 checkpoint 中的帳戶數。
func (c Checkpoint) Len() int {
	return len(c.accounts)
}
