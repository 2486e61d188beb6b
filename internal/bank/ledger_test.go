// internal/bank/ledger_test.go
//
// 本檔為 Ledger 的單元測試：帳戶生命週期、存提款、快照與 checkpoint。
// 所有測試皆為 in-memory 執行，不依賴外部服務。

package bank

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banksystem/internal/storage"
)

// balance 為小工具：帳戶必須存在，否則測試立即失敗。
func balance(t *testing.T, l *Ledger, name string) int64 {
	t.Helper()
	bal, ok := l.Balance(name)
	require.True(t, ok, "account %q should exist", name)
	return bal
}

func sortedAccounts(l *Ledger) []Account {
	all := l.All()
	slices.SortFunc(all, func(a, b Account) int { return strings.Compare(a.Name, b.Name) })
	return all
}

func TestAddUser(t *testing.T) {
	l := NewLedger()

	bal, ok := l.AddUser("Alice")
	assert.True(t, ok)
	assert.Zero(t, bal)

	require.NoError(t, l.Deposit("Alice", 70))

	// 第二次新增：回報已存在，餘額不被覆寫
	_, ok = l.AddUser("Alice")
	assert.False(t, ok)
	assert.EqualValues(t, 70, balance(t, l, "Alice"))
	assert.Equal(t, 1, l.Len())
}

func TestRemoveUser(t *testing.T) {
	l := NewLedger()
	l.AddUser("Bob")
	require.NoError(t, l.Deposit("Bob", 100))

	bal, ok := l.RemoveUser("Bob")
	assert.True(t, ok)
	assert.EqualValues(t, 100, bal)

	_, ok = l.Balance("Bob")
	assert.False(t, ok)

	// 第二次刪除：不存在
	_, ok = l.RemoveUser("Bob")
	assert.False(t, ok)
}

func TestRemovedAccountNoLongerParticipates(t *testing.T) {
	l := NewLedger()
	l.AddUser("Bob")
	l.RemoveUser("Bob")

	assert.ErrorIs(t, l.Deposit("Bob", 1), ErrNotFound)
	assert.ErrorIs(t, l.Withdraw("Bob", 1), ErrNotFound)

	// 重新加入後從 0 開始
	bal, ok := l.AddUser("Bob")
	assert.True(t, ok)
	assert.Zero(t, bal)
}

func TestNonexistentUser(t *testing.T) {
	l := NewLedger()

	assert.ErrorIs(t, l.Deposit("Dana", 100), ErrNotFound)
	assert.ErrorIs(t, l.Withdraw("Dana", 50), ErrNotFound)

	_, ok := l.Balance("Dana")
	assert.False(t, ok)
	assert.False(t, l.Has("Dana"))
	assert.Zero(t, l.Len())
}

func TestDepositWithdraw(t *testing.T) {
	l := NewLedger()
	l.AddUser("A")

	require.NoError(t, l.Deposit("A", 100))
	require.NoError(t, l.Withdraw("A", 30))
	assert.EqualValues(t, 70, balance(t, l, "A"))

	// 餘額剛好等於金額時允許
	require.NoError(t, l.Withdraw("A", 70))
	assert.Zero(t, balance(t, l, "A"))

	// 餘額不足：失敗且不變
	assert.ErrorIs(t, l.Withdraw("A", 1), ErrInsufficient)
	assert.Zero(t, balance(t, l, "A"))
}

func TestDepositAcceptsAnyAmount(t *testing.T) {
	l := NewLedger()
	l.AddUser("A")

	require.NoError(t, l.Deposit("A", 10))
	require.NoError(t, l.Deposit("A", -25))
	assert.EqualValues(t, -15, balance(t, l, "A"))
}

func TestAll(t *testing.T) {
	l := NewLedger()
	assert.Empty(t, l.All())

	l.AddUser("John")
	l.AddUser("Alice")
	require.NoError(t, l.Deposit("John", 150))
	require.NoError(t, l.Deposit("Alice", 300))

	assert.Equal(t, []Account{{Name: "Alice", Balance: 300}, {Name: "John", Balance: 150}}, sortedAccounts(l))
}

func TestCheckpointRollback(t *testing.T) {
	l := NewLedger()
	l.AddUser("A")
	require.NoError(t, l.Deposit("A", 50))

	cp := l.Checkpoint()
	assert.Equal(t, 1, cp.Len())

	require.NoError(t, l.Deposit("A", 25))
	l.AddUser("B")
	l.RemoveUser("A")

	l.Rollback(cp)
	assert.Equal(t, []Account{{Name: "A", Balance: 50}}, sortedAccounts(l))

	// checkpoint 不與帳本共享狀態：還原後再修改不影響第二次還原
	require.NoError(t, l.Deposit("A", 1))
	l.Rollback(cp)
	assert.EqualValues(t, 50, balance(t, l, "A"))
}

func TestRollbackEmptyCheckpoint(t *testing.T) {
	l := NewLedger()
	cp := l.Checkpoint()

	l.AddUser("A")
	l.Rollback(cp)
	assert.Zero(t, l.Len())

	// 還原後仍可正常寫入
	l.AddUser("B")
	assert.True(t, l.Has("B"))
}

func TestSnapshotRestore(t *testing.T) {
	l := NewLedger()
	l.AddUser("A")
	l.AddUser("B")
	require.NoError(t, l.Deposit("A", 400))
	require.NoError(t, l.Deposit("B", 1200))

	snap := l.Snapshot()
	assert.Equal(t, storage.SnapshotVersion, snap.Meta.Version)
	assert.Len(t, snap.Accounts, 2)

	l2 := NewLedger()
	l2.Restore(snap)
	assert.Equal(t, sortedAccounts(l), sortedAccounts(l2))
}

func TestRestoreAccumulatesDuplicates(t *testing.T) {
	l := NewLedger()
	l.Restore(storage.Snapshot{Accounts: []storage.PersistAccount{
		{Name: "A", Balance: 10},
		{Name: "A", Balance: 5},
	}})
	assert.EqualValues(t, 15, balance(t, l, "A"))
}

func TestSeed(t *testing.T) {
	l := NewLedger()
	l.AddUser("Bob")
	require.NoError(t, l.Deposit("Bob", 9))

	n := l.Seed("John", "Alice", "Bob", "Vasya")
	assert.Equal(t, 3, n)
	assert.Equal(t, 4, l.Len())
	assert.EqualValues(t, 9, balance(t, l, "Bob"))
}
