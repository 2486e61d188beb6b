// internal/cli/shell.go
//
// Package cli 提供互動式命令列介面：逐行讀取指令、操作帳本，
// 每次成功變更後透過 SaveFunc 寫入快照。
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"banksystem/internal/bank"
	"banksystem/internal/logging"
	"banksystem/internal/storage"
	"banksystem/internal/transaction"
)

// SaveFunc 將目前帳本狀態寫入儲存層。
type SaveFunc func(ctx context.Context) error

// Shell 為互動式命令列。
type Shell struct {
	ledger *bank.Ledger
	save   SaveFunc
	out    io.Writer
	logger *logging.Logger

	// Prompt 於每次讀取指令前輸出；空字串時不輸出。
	Prompt string
}

// NewShell 建立操作 l 的 Shell；save 可為 nil。
func NewShell(l *bank.Ledger, save SaveFunc, out io.Writer) *Shell {
	return &Shell{
		ledger: l,
		save:   save,
		out:    out,
		logger: logging.L().Named("cli"),
		Prompt: "> ",
	}
}

const usage = `Commands:
  add <name> <balance>          add an account with an initial balance
  remove <name>                 remove an account
  deposit <name> <amount>       deposit (creates the account if missing)
  withdraw <name> <amount>      withdraw directly from the ledger
  wd <name> <amount>            withdraw as a transaction
  transfer <from> <to> <amount> transfer between accounts
  balance <name>                show a balance
  list                          list all accounts
  + <op> <args> <op> <args>...  apply several operations in order
                                (op: deposit <name> <n> | withdraw <name> <n> | transfer <from> <to> <n>)
  help                          show this help
  exit                          quit
`

// Run 逐行執行 in 中的指令，直到 exit、EOF 或 ctx 結束。
// 讀取在獨立 goroutine 進行，ctx 取消時即使 in 仍阻塞也會立即返回；
// 該 goroutine 會在 in 下一次回傳資料或關閉時結束。
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Prompt != "" {
			fmt.Fprint(s.out, s.Prompt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if s.Exec(ctx, line) {
				return nil
			}
		}
	}
}

// Exec 執行單行指令；回傳 true 代表使用者要求結束。
func (s *Shell) Exec(ctx context.Context, line string) (quit bool) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "exit", "quit":
		return true
	case "help":
		fmt.Fprint(s.out, usage)
	case "add":
		s.add(ctx, args)
	case "remove":
		s.remove(ctx, args)
	case "deposit":
		s.deposit(ctx, args)
	case "withdraw":
		s.withdraw(ctx, args)
	case "wd":
		s.wd(ctx, args)
	case "transfer":
		s.transfer(ctx, args)
	case "balance":
		s.balance(args)
	case "list":
		s.list()
	case "+":
		s.combined(ctx, args[1:])
	default:
		fmt.Fprintf(s.out, "unknown command %q, type help\n", args[0])
	}
	return false
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format+"\n", a...)
}

// amount 解析金額；失敗時輸出提示並回傳 false。
func (s *Shell) amount(arg string) (int64, bool) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		s.printf("amount must be a number: %q", arg)
		return 0, false
	}
	return n, true
}

func (s *Shell) persist(ctx context.Context) {
	if s.save == nil {
		return
	}
	if err := s.save(ctx); err != nil {
		s.printf("warning: save failed: %v", err)
		s.logger.Warn("save failed", zap.Error(err))
	}
}

func (s *Shell) add(ctx context.Context, args []string) {
	if len(args) != 3 {
		s.printf("usage: add John 100")
		return
	}
	name := args[1]
	if err := storage.ValidateName(name); err != nil {
		s.printf("error: %v", err)
		return
	}
	bal, ok := s.amount(args[2])
	if !ok {
		return
	}
	if _, created := s.ledger.AddUser(name); !created {
		s.printf("account %s already exists", name)
		return
	}
	_ = s.ledger.Deposit(name, bal)
	s.printf("added %s with balance %d", name, bal)
	s.persist(ctx)
}

func (s *Shell) remove(ctx context.Context, args []string) {
	if len(args) != 2 {
		s.printf("usage: remove John")
		return
	}
	bal, ok := s.ledger.RemoveUser(args[1])
	if !ok {
		s.printf("account %s not found", args[1])
		return
	}
	s.printf("removed %s (balance %d)", args[1], bal)
	s.persist(ctx)
}

func (s *Shell) deposit(ctx context.Context, args []string) {
	if len(args) != 3 {
		s.printf("usage: deposit John 100")
		return
	}
	// 存款可能建立新帳戶
	if err := storage.ValidateName(args[1]); err != nil {
		s.printf("error: %v", err)
		return
	}
	n, ok := s.amount(args[2])
	if !ok {
		return
	}
	s.apply(ctx, transaction.NewDeposit(args[1], n))
}

// withdraw 直接呼叫帳本的 Withdraw，不經過交易層。
func (s *Shell) withdraw(ctx context.Context, args []string) {
	if len(args) != 3 {
		s.printf("usage: withdraw John 100")
		return
	}
	n, ok := s.amount(args[2])
	if !ok {
		return
	}
	if err := s.ledger.Withdraw(args[1], n); err != nil {
		s.printf("error: %v", err)
		return
	}
	s.printf("withdrew %d from %s", n, args[1])
	s.persist(ctx)
}

func (s *Shell) wd(ctx context.Context, args []string) {
	if len(args) != 3 {
		s.printf("usage: wd John 100")
		return
	}
	n, ok := s.amount(args[2])
	if !ok {
		return
	}
	s.apply(ctx, transaction.NewWithdraw(args[1], n))
}

func (s *Shell) transfer(ctx context.Context, args []string) {
	if len(args) != 4 {
		s.printf("usage: transfer Alice Bob 50")
		return
	}
	n, ok := s.amount(args[3])
	if !ok {
		return
	}
	s.apply(ctx, transaction.NewTransfer(args[1], args[2], n))
}

func (s *Shell) apply(ctx context.Context, op transaction.Operation) {
	if err := op.Apply(s.ledger); err != nil {
		s.printf("transaction failed: %v", err)
		return
	}
	s.printf("ok: %v", op)
	s.persist(ctx)
}

func (s *Shell) balance(args []string) {
	if len(args) != 2 {
		s.printf("usage: balance John")
		return
	}
	bal, ok := s.ledger.Balance(args[1])
	if !ok {
		s.printf("account %s not found", args[1])
		return
	}
	s.printf("%s: %d", args[1], bal)
}

func (s *Shell) list() {
	all := s.ledger.All()
	if len(all) == 0 {
		s.printf("no accounts")
		return
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	for _, a := range all {
		s.printf("%s --> %d", a.Name, a.Balance)
	}
}

// combined 解析 "+ deposit A 100 transfer A B 30" 形式的指令並以 Combinator 依序套用。
// 失敗前已完成的操作會保留，因此不論成功與否都會寫入快照。
func (s *Shell) combined(ctx context.Context, args []string) {
	ops, err := parseOperations(args)
	if err != nil {
		s.printf("%v", err)
		s.printf("usage: + deposit Alice 100 transfer Alice Bob 30")
		return
	}
	op := transaction.Chain(ops[0], ops[1:]...)
	if err := op.Apply(s.ledger); err != nil {
		s.printf("transaction failed: %v", err)
	} else {
		s.printf("ok: %v", op)
	}
	s.persist(ctx)
}

// parseOperations 需要至少兩個操作。
func parseOperations(args []string) ([]transaction.Operation, error) {
	var ops []transaction.Operation
	for len(args) > 0 {
		var need int
		switch args[0] {
		case "deposit", "withdraw":
			need = 3
		case "transfer":
			need = 4
		default:
			return nil, fmt.Errorf("unknown operation %q", args[0])
		}
		if len(args) < need {
			return nil, fmt.Errorf("%s: missing arguments", args[0])
		}
		n, err := strconv.ParseInt(args[need-1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: amount must be a number: %q", args[0], args[need-1])
		}
		switch args[0] {
		case "deposit":
			if err := storage.ValidateName(args[1]); err != nil {
				return nil, fmt.Errorf("deposit: %w", err)
			}
			ops = append(ops, transaction.NewDeposit(args[1], n))
		case "withdraw":
			ops = append(ops, transaction.NewWithdraw(args[1], n))
		case "transfer":
			ops = append(ops, transaction.NewTransfer(args[1], args[2], n))
		}
		args = args[need:]
	}
	if len(ops) < 2 {
		return nil, fmt.Errorf("need at least two operations, got %d", len(ops))
	}
	return ops, nil
}
