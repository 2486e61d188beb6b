// internal/storage/csvstore_test.go
package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "balances.csv")
	s := NewCSVStore(path)

	snap := Snapshot{Accounts: []PersistAccount{
		{Name: "John", Balance: 10},
		{Name: "Alice", Balance: 0},
		{Name: "Bob", Balance: -3},
	}}
	require.NoError(t, s.Save(context.Background(), snap))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "John,10\nAlice,0\nBob,-3\n", string(raw))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.Accounts, loaded.Accounts)
	assert.Equal(t, BackendCSV, loaded.Meta.Storage)
	assert.Equal(t, SnapshotVersion, loaded.Meta.Version)
	assert.False(t, loaded.Meta.Timestamp.IsZero())
	assert.Equal(t, path, s.Path())
}

func TestCSVStoreOverwrites(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "balances.csv"))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Snapshot{Accounts: []PersistAccount{{Name: "A", Balance: 1}, {Name: "B", Balance: 2}}}))
	require.NoError(t, s.Save(ctx, Snapshot{Accounts: []PersistAccount{{Name: "C", Balance: 3}}}))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PersistAccount{{Name: "C", Balance: 3}}, loaded.Accounts)
}

func TestCSVStoreMissingFile(t *testing.T) {
	_, err := NewCSVStore(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestReadRecords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []PersistAccount
		skipped int
	}{
		{
			name:  "plain",
			input: "John,5\nAlice,7\n",
			want:  []PersistAccount{{Name: "John", Balance: 5}, {Name: "Alice", Balance: 7}},
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  John,5  \r\n",
			want:  []PersistAccount{{Name: "John", Balance: 5}},
		},
		{
			name:    "wrong field count skipped",
			input:   "John\nAlice,1,2\n\nBob,3\n",
			want:    []PersistAccount{{Name: "Bob", Balance: 3}},
			skipped: 3,
		},
		{
			name:  "non numeric balance is zero",
			input: "John,abc\nAlice, 4\n",
			want:  []PersistAccount{{Name: "John", Balance: 0}, {Name: "Alice", Balance: 0}},
		},
		{
			name:  "no trailing newline",
			input: "John,9",
			want:  []PersistAccount{{Name: "John", Balance: 9}},
		},
		{
			name:  "duplicates kept in order",
			input: "A,1\nA,2\n",
			want:  []PersistAccount{{Name: "A", Balance: 1}, {Name: "A", Balance: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skipped, err := ReadRecords(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.skipped, skipped)
		})
	}
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, []PersistAccount{{Name: "A", Balance: 1}, {Name: "B", Balance: 22}}))
	assert.Equal(t, "A,1\nB,22\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteRecords(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestReadRecordsLongLine(t *testing.T) {
	input := strings.Repeat("x", 200*1024) + "\nA,1\n" + "B," + strings.Repeat("9", 100*1024) + "\n"

	got, skipped, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	// 超長但欄位數正確的行照常解析，餘額無法解析則為 0
	assert.Equal(t, []PersistAccount{{Name: "A", Balance: 1}, {Name: "B", Balance: 0}}, got)
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"plain", "John", true},
		{"inner space", "John Smith", true},
		{"unicode", "Вася", true},
		{"empty", "", false},
		{"comma", "a,b", false},
		{"newline", "a\nb", false},
		{"carriage return", "a\rb", false},
		{"leading space", " lead", false},
		{"trailing tab", "trail\t", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestWriteRecordsRejectsUnreadableNames(t *testing.T) {
	for _, name := range []string{"a,b", " lead", "x\ny"} {
		var buf bytes.Buffer
		err := WriteRecords(&buf, []PersistAccount{{Name: "ok", Balance: 5}, {Name: name, Balance: 5}})
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
		assert.Empty(t, buf.String(), "nothing is written for %q", name)
	}
}

func TestCSVStoreSaveKeepsPreviousFileOnInvalidName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balances.csv")
	s := NewCSVStore(path)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Snapshot{Accounts: []PersistAccount{{Name: "ok", Balance: 5}}}))
	err := s.Save(ctx, Snapshot{Accounts: []PersistAccount{{Name: "ok", Balance: 6}, {Name: "a,b", Balance: 5}}})
	require.ErrorIs(t, err, ErrInvalidName)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PersistAccount{{Name: "ok", Balance: 5}}, loaded.Accounts)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
