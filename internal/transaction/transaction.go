// internal/transaction/transaction.go

// Package transaction 定義可套用到帳本上的操作 (Operation)：
// Deposit、Withdraw、Transfer，以及把兩個操作串起來的 Combinator。
//
// 操作是不可變的描述，不持有帳本；帳本在 Apply 時才傳入，
// 同一個操作值可以重複套用，每次都以當下的帳本狀態獨立判斷。
package transaction

import (
	"fmt"

	"banksystem/internal/bank"
)

// Operation 是所有交易的共同能力：套用到帳本上，成功或回傳失敗。
type Operation interface {
	Apply(l *bank.Ledger) error
}

// Kind 回傳操作種類名稱（deposit、withdraw、transfer、combinator、atomic）；
// 其他實作回傳 "custom"。
func Kind(op Operation) string {
	if k, ok := op.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	return "custom"
}

// Deposit 存款。與 bank.Ledger.Deposit 不同，帳戶不存在時會自動以餘額 0 建立。
type Deposit struct {
	Account string
	Amount  int64
}

// NewDeposit 建立存款操作。
func NewDeposit(account string, amount int64) Deposit {
	return Deposit{Account: account, Amount: amount}
}

// Apply 存入金額；結果會使餘額為負（負數金額）時回傳 ErrInsufficientFunds 且不建立帳戶。
func (d Deposit) Apply(l *bank.Ledger) error {
	bal, _ := l.Balance(d.Account)
	if bal+d.Amount < 0 {
		return insufficient(d.Kind(), d.Account)
	}
	l.AddUser(d.Account)
	return fromLedger(d.Kind(), d.Account, l.Deposit(d.Account, d.Amount))
}

func (d Deposit) Kind() string { return "deposit" }

func (d Deposit) String() string {
	return fmt.Sprintf("deposit %s: %d", d.Account, d.Amount)
}

// Then 回傳「先 d 再 next」的組合操作。
func (d Deposit) Then(next Operation) Combinator { return Then(d, next) }

// Withdraw 提款。
type Withdraw struct {
	Account string
	Amount  int64
}

// NewWithdraw 建立提款操作。
func NewWithdraw(account string, amount int64) Withdraw {
	return Withdraw{Account: account, Amount: amount}
}

// Apply 帳戶不存在回傳 ErrInvalidAccount；餘額小於金額，或結果為負（負數金額溢位）時
// 回傳 ErrInsufficientFunds；否則扣款。
func (w Withdraw) Apply(l *bank.Ledger) error {
	bal, ok := l.Balance(w.Account)
	if !ok {
		return invalidAccount(w.Kind(), w.Account)
	}
	if bal < w.Amount || bal-w.Amount < 0 {
		return insufficient(w.Kind(), w.Account)
	}
	return fromLedger(w.Kind(), w.Account, l.Withdraw(w.Account, w.Amount))
}

func (w Withdraw) Kind() string { return "withdraw" }

func (w Withdraw) String() string {
	return fmt.Sprintf("withdraw %s: %d", w.Account, w.Amount)
}

// Then 回傳「先 w 再 next」的組合操作。
func (w Withdraw) Then(next Operation) Combinator { return Then(w, next) }

// Transfer 轉帳：從 From 扣款並存入 To。
type Transfer struct {
	From   string
	To     string
	Amount int64
}

// NewTransfer 建立轉帳操作。
func NewTransfer(from, to string, amount int64) Transfer {
	return Transfer{From: from, To: to, Amount: amount}
}

// Apply 檢查順序固定：
//  1. From 與 To 皆需存在（ErrInvalidAccount），
//  2. From 餘額足夠且扣款後不為負（ErrInsufficientFunds），
//  3. 才同時扣款與入帳。
//
// 任一檢查失敗時帳本完全不變，外部也不會觀察到只扣款未入帳的中間狀態。
func (t Transfer) Apply(l *bank.Ledger) error {
	fromBal, ok := l.Balance(t.From)
	if !ok {
		return invalidAccount(t.Kind(), t.From)
	}
	toBal, ok := l.Balance(t.To)
	if !ok {
		return invalidAccount(t.Kind(), t.To)
	}
	if fromBal < t.Amount || fromBal-t.Amount < 0 {
		return insufficient(t.Kind(), t.From)
	}
	// 負數金額等於反向轉帳，To 同樣不得變為負數
	if t.From != t.To && toBal+t.Amount < 0 {
		return insufficient(t.Kind(), t.To)
	}

	if err := l.Withdraw(t.From, t.Amount); err != nil {
		return fromLedger(t.Kind(), t.From, err)
	}
	return fromLedger(t.Kind(), t.To, l.Deposit(t.To, t.Amount))
}

func (t Transfer) Kind() string { return "transfer" }

func (t Transfer) String() string {
	return fmt.Sprintf("transfer %s -> %s: %d", t.From, t.To, t.Amount)
}

// Then 回傳「先 t 再 next」的組合操作。
func (t Transfer) Then(next Operation) Combinator { return Then(t, next) }
