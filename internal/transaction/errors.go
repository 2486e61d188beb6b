// internal/transaction/errors.go
//
// 交易只會回報兩種失敗：餘額不足與帳戶不存在。
// 每個變體回傳 *TxError，並可透過 errors.Is 對應到下列哨兵錯誤。

package transaction

import (
	"errors"
	"fmt"

	"banksystem/internal/bank"
)

var (
	// ErrInsufficientFunds 代表扣款時的餘額檢查失敗。
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAccount 代表引用的帳戶不存在（Deposit 會自動建立帳戶，不會回傳此錯誤）。
	ErrInvalidAccount = errors.New("invalid account")
)

// TxError 記錄失敗的操作種類與觸發失敗的帳戶。
type TxError struct {
	Op      string
	Account string
	Err     error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Account, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

func insufficient(op, account string) error {
	return &TxError{Op: op, Account: account, Err: ErrInsufficientFunds}
}

func invalidAccount(op, account string) error {
	return &TxError{Op: op, Account: account, Err: ErrInvalidAccount}
}

// fromLedger 將帳本層錯誤轉成交易層錯誤。
func fromLedger(op, account string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bank.ErrNotFound):
		return invalidAccount(op, account)
	case errors.Is(err, bank.ErrInsufficient):
		return insufficient(op, account)
	default:
		return &TxError{Op: op, Account: account, Err: err}
	}
}

// Classify 回傳錯誤的分類名稱，供 log 與 metrics 標籤使用。
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidAccount):
		return "invalid_account"
	default:
		return "error"
	}
}
