// internal/cli/shell_test.go
package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banksystem/internal/bank"
	"banksystem/internal/storage"
)

func newShell(t *testing.T) (*Shell, *bank.Ledger, *bytes.Buffer, *int) {
	t.Helper()
	l := bank.NewLedger()
	var out bytes.Buffer
	saves := 0
	sh := NewShell(l, func(context.Context) error {
		saves++
		return nil
	}, &out)
	sh.Prompt = ""
	return sh, l, &out, &saves
}

func TestShellSession(t *testing.T) {
	sh, l, out, saves := newShell(t)

	script := strings.Join([]string{
		"add John 100",
		"add Alice 0",
		"deposit Bob 5",
		"transfer John Alice 40",
		"wd Alice 10",
		"withdraw John 10",
		"balance John",
		"list",
		"remove Bob",
		"exit",
		"add Never 1",
	}, "\n")

	require.NoError(t, sh.Run(context.Background(), strings.NewReader(script)))

	bal, _ := l.Balance("John")
	assert.EqualValues(t, 50, bal)
	bal, _ = l.Balance("Alice")
	assert.EqualValues(t, 30, bal)
	assert.False(t, l.Has("Bob"))
	assert.False(t, l.Has("Never"), "commands after exit must not run")

	text := out.String()
	assert.Contains(t, text, "ok: transfer John -> Alice: 40")
	assert.Contains(t, text, "John: 50")
	assert.Contains(t, text, "Alice --> 30\nBob --> 5\nJohn --> 50\n")
	// add×2 + deposit + transfer + wd + withdraw + remove
	assert.Equal(t, 7, *saves)
}

func TestShellFailuresDoNotSave(t *testing.T) {
	sh, l, out, saves := newShell(t)
	l.AddUser("John")

	lines := []string{
		"add John 1",
		"add Ann abc",
		"wd John 5",
		"wd Ghost 1",
		"withdraw John 5",
		"transfer John Ghost 0",
		"remove Ghost",
		"balance Ghost",
		"deposit John",
		"frobnicate",
	}
	for _, line := range lines {
		assert.False(t, sh.Exec(context.Background(), line))
	}

	assert.Zero(t, *saves)
	text := out.String()
	assert.Contains(t, text, "account John already exists")
	assert.Contains(t, text, `amount must be a number: "abc"`)
	assert.Contains(t, text, "insufficient funds")
	assert.Contains(t, text, "invalid account")
	assert.Contains(t, text, "usage: deposit John 100")
	assert.Contains(t, text, `unknown command "frobnicate"`)
}

func TestShellCombined(t *testing.T) {
	sh, l, out, saves := newShell(t)
	l.AddUser("Bob")

	sh.Exec(context.Background(), "+ deposit Alice 100 transfer Alice Bob 30")
	a, _ := l.Balance("Alice")
	b, _ := l.Balance("Bob")
	assert.EqualValues(t, 70, a)
	assert.EqualValues(t, 30, b)
	assert.Equal(t, 1, *saves)

	// 第二步失敗時第一步已生效，且仍會保存
	sh.Exec(context.Background(), "+ deposit Alice 1 withdraw Alice 1000")
	a, _ = l.Balance("Alice")
	assert.EqualValues(t, 71, a)
	assert.Equal(t, 2, *saves)
	assert.Contains(t, out.String(), "transaction failed")

	sh.Exec(context.Background(), "+ deposit Alice 1")
	assert.Contains(t, out.String(), "need at least two operations")
	assert.Equal(t, 2, *saves)
}

func TestParseOperations(t *testing.T) {
	ops, err := parseOperations(strings.Fields("deposit A 1 withdraw A 2 transfer A B 3"))
	require.NoError(t, err)
	assert.Len(t, ops, 3)

	_, err = parseOperations(strings.Fields("deposit A x transfer A B 1"))
	assert.ErrorContains(t, err, "amount must be a number")

	_, err = parseOperations(strings.Fields("deposit A 1 transfer A B"))
	assert.ErrorContains(t, err, "missing arguments")

	_, err = parseOperations(strings.Fields("steal A 1 deposit A 1"))
	assert.ErrorContains(t, err, "unknown operation")

	_, err = parseOperations(strings.Fields("deposit a,b 1 deposit A 1"))
	assert.ErrorIs(t, err, storage.ErrInvalidName)
}

func TestShellRejectsUnstorableNames(t *testing.T) {
	sh, l, out, saves := newShell(t)

	for _, line := range []string{
		"add a,b 1",
		"deposit x,y 5",
		"+ deposit p,q 1 deposit A 1",
	} {
		assert.False(t, sh.Exec(context.Background(), line))
	}

	assert.Zero(t, l.Len())
	assert.Zero(t, *saves)
	assert.Contains(t, out.String(), "invalid account name")
}

func TestShellSaveFailureIsReported(t *testing.T) {
	l := bank.NewLedger()
	var out bytes.Buffer
	sh := NewShell(l, func(context.Context) error { return errors.New("disk full") }, &out)

	sh.Exec(context.Background(), "deposit A 1")
	assert.Contains(t, out.String(), "save failed: disk full")
	assert.True(t, l.Has("A"))
}

func TestShellStopsOnCancelledContext(t *testing.T) {
	sh, _, _, _ := newShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sh.Run(ctx, strings.NewReader("add A 1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShellCancelWhileWaitingForInput(t *testing.T) {
	l := bank.NewLedger()
	var out bytes.Buffer
	saved := make(chan struct{}, 1)
	sh := NewShell(l, func(context.Context) error {
		saved <- struct{}{}
		return nil
	}, &out)
	sh.Prompt = ""

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	result := make(chan error, 1)
	go func() { result <- sh.Run(ctx, pr) }()

	_, err := pw.Write([]byte("add A 1\n"))
	require.NoError(t, err)
	select {
	case <-saved:
	case <-time.After(2 * time.Second):
		t.Fatal("command was not executed")
	}

	// 此時 Run 正等待下一行輸入
	cancel()
	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, l.Has("A"))
}
