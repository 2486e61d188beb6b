// internal/storage/postgres.go
//
// PostgreSQL 後端：accounts 資料表每列一個帳戶，ledger_meta 只有一列 (id = 1)，
// 記錄最後一次保存的版本與時間。ledger_meta 有資料就代表保存過，
// 因此即使 accounts 為空也是合法的空帳本，不會被當成「尚未保存」。
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresConfig 為 PostgreSQL 連線設定。
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// DefaultPostgresConfig 回傳本機開發用的預設值。
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "bank",
		SSLMode:  "disable",
	}
}

// DSN 產生 lib/pq 使用的連線字串。
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// PostgresStore 以單一 SQL 交易整批取代資料表內容。
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore 建立連線池、ping 後建立資料表。
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store, err := NewPostgresStoreWithDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB 包裝既有連線池（測試時為 sqlmock）並建立資料表。
func NewPostgresStoreWithDB(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db, now: time.Now}
	if err := s.initTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to init tables: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS accounts (
		name TEXT PRIMARY KEY,
		balance BIGINT NOT NULL
	)`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ledger_meta (
		id INT PRIMARY KEY,
		version INT NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL
	)`)
	return err
}

// Name 實作 Store。
func (s *PostgresStore) Name() string { return BackendPostgres }

// Close 關閉連線池。
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Load 讀取所有帳戶。ledger_meta 沒有資料且 accounts 為空時回傳 ErrNoSnapshot；
// 舊版只有 accounts 資料的資料庫照常載入。
func (s *PostgresStore) Load(ctx context.Context) (Snapshot, error) {
	meta := Meta{Storage: BackendPostgres, Version: SnapshotVersion}
	saved := true
	err := s.db.QueryRowContext(ctx, `SELECT version, saved_at FROM ledger_meta WHERE id = 1`).
		Scan(&meta.Version, &meta.Timestamp)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		saved = false
	case err != nil:
		return Snapshot{}, fmt.Errorf("query ledger_meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, balance FROM accounts`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []PersistAccount
	for rows.Next() {
		var a PersistAccount
		if err := rows.Scan(&a.Name, &a.Balance); err != nil {
			return Snapshot{}, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate accounts: %w", err)
	}
	if !saved && len(accounts) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}

	return Snapshot{Meta: meta, Accounts: accounts}, nil
}

// Save 以 snap 取代資料表內容並更新 ledger_meta。
func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	for _, a := range snap.Accounts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO accounts (name, balance) VALUES ($1, $2)`,
			a.Name, a.Balance,
		); err != nil {
			return fmt.Errorf("insert account %s: %w", a.Name, err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_meta (id, version, saved_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, saved_at = EXCLUDED.saved_at`,
		SnapshotVersion, s.now().UTC(),
	); err != nil {
		return fmt.Errorf("update ledger_meta: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
