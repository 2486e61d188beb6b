// internal/transaction/combinator.go

package transaction

import (
	"fmt"

	"banksystem/internal/bank"
)

// Combinator 依序套用 First 與 Second。
//
// First 失敗時直接回傳該錯誤，不執行 Second；
// First 成功而 Second 失敗時，First 已造成的變更「不會」回滾，帳本停留在中間狀態。
// 需要全有或全無語意時請用 Atomic 包裝。
type Combinator struct {
	First  Operation
	Second Operation
}

// Then 組合兩個操作。
func Then(first, second Operation) Combinator {
	return Combinator{First: first, Second: second}
}

// Chain 將多個操作由左至右摺疊成巢狀 Combinator：
// Chain(a, b, c) 等同於 Then(Then(a, b), c)。只有一個操作時原樣回傳。
func Chain(first Operation, rest ...Operation) Operation {
	op := first
	for _, next := range rest {
		op = Combinator{First: op, Second: next}
	}
	return op
}

func (c Combinator) Apply(l *bank.Ledger) error {
	if err := c.First.Apply(l); err != nil {
		return err
	}
	return c.Second.Apply(l)
}

func (c Combinator) Kind() string { return "combinator" }

func (c Combinator) String() string {
	return fmt.Sprintf("%v + %v", c.First, c.Second)
}

// Then 回傳「先 c 再 next」的組合操作。
func (c Combinator) Then(next Operation) Combinator { return Then(c, next) }

// Atomic 在套用 Op 前記錄帳本 checkpoint，失敗時整體還原後回傳原本的錯誤。
type Atomic struct {
	Op Operation
}

// NewAtomic 包裝 op。
func NewAtomic(op Operation) Atomic {
	return Atomic{Op: op}
}

func (a Atomic) Apply(l *bank.Ledger) error {
	cp := l.Checkpoint()
	if err := a.Op.Apply(l); err != nil {
		l.Rollback(cp)
		return err
	}
	return nil
}

func (a Atomic) Kind() string { return "atomic" }

func (a Atomic) String() string {
	return fmt.Sprintf("atomic(%v)", a.Op)
}
