package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const settingsTable = `CREATE TABLE IF NOT EXISTS wa_settings (
	option_name TEXT PRIMARY KEY,
	option_value TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open returns the store for SETTINGS_DATASTORE_TYPE: memory, sqlite,
// postgres (lib/pq) or pgx.
func Open(driver string, dsn string) (Store, error) {
	driver = normalizeDriver(driver)
	if driver == "memory" {
		return NewMemoryStore(), nil
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("settings datastore %s requires SETTINGS_DATASTORE_URI", driver)
	}

	switch driver {
	case "sqlite":
		if dir := filepath.Dir(strings.TrimPrefix(dsn, "file:")); dir != "." && !strings.Contains(dsn, ":memory:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	case "pgx":
		dsn = normalizeDSN(dsn)
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported settings datastore %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db, driver)
}

// NewSQLStore wraps an open database and creates the settings table.
func NewSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(10 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("settings datastore ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, settingsTable); err != nil {
		return nil, fmt.Errorf("settings table creation failed: %w", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT option_value FROM wa_settings WHERE option_name = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO wa_settings (option_name, option_value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (option_name) DO UPDATE SET option_value = excluded.option_value, updated_at = CURRENT_TIMESTAMP`, key, value)
	return err
}

func (s *SQLStore) SetDefault(ctx context.Context, key string, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO wa_settings (option_name, option_value)
		VALUES ($1, $2)
		ON CONFLICT (option_name) DO NOTHING`, key, value)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM wa_settings WHERE option_name = $1`, key)
	return err
}

func (s *SQLStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT option_name, option_value FROM wa_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return "sqlite"
	case "postgresql", "postgres", "pq":
		return "postgres"
	case "pgx":
		return "pgx"
	case "memory", "mem":
		return "memory"
	}
	return strings.ToLower(strings.TrimSpace(driver))
}

// normalizeDSN disables pgx statement caching so the store works behind
// transaction-pooling proxies.
func normalizeDSN(dsn string) string {
	appendParam := func(current string, key string, value string) string {
		if strings.Contains(current, key+"=") {
			return current
		}
		separator := "?"
		if strings.Contains(current, "?") {
			if strings.HasSuffix(current, "?") || strings.HasSuffix(current, "&") {
				separator = ""
			} else {
				separator = "&"
			}
		}
		return current + separator + key + "=" + value
	}
	dsn = appendParam(dsn, "statement_cache_capacity", "0")
	dsn = appendParam(dsn, "default_query_exec_mode", "simple_protocol")
	return dsn
}
