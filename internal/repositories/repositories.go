// package repositories provides persistence media for session state.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/desertthunder/snooze/internal/shared"
	"github.com/redis/go-redis/v9"
)

// Medium is a flat key-value store.
type Medium interface {
	// Get returns the value stored under key and whether it was found.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, overwriting any prior value.
	Set(ctx context.Context, key, value string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

var (
	_ Medium = (*SQLiteMedium)(nil)
	_ Medium = (*RedisMedium)(nil)
	_ Medium = (*MemoryMedium)(nil)
)

// Open builds the [Medium] selected by config.Storage.Driver.
//
// The returned closer releases the underlying connection and is never nil.
func Open(ctx context.Context, config *shared.Config) (Medium, io.Closer, error) {
	switch config.Storage.Driver {
	case shared.StorageSQLite:
		db, err := shared.OpenMigrated(ctx, config.Database)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteMedium(db), db, nil
	case shared.StorageRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", config.Redis.Addr, err)
		}
		return NewRedisMedium(rdb, config.Storage.KeyPrefix), rdb, nil
	case shared.StorageMemory:
		return NewMemoryMedium(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrInvalidConfig, config.Storage.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SQLiteMedium stores entries in the kv_store table.
type SQLiteMedium struct {
	db *sql.DB
}

// NewSQLiteMedium creates a new [SQLiteMedium] with the given (migrated) database connection
func NewSQLiteMedium(db *sql.DB) *SQLiteMedium {
	return &SQLiteMedium{db: db}
}

// Get retrieves the value stored under key
func (m *SQLiteMedium) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := m.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query key %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key
func (m *SQLiteMedium) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := m.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to store key %s: %w", key, err)
	}
	return nil
}

// Delete removes keys in a single transaction
func (m *SQLiteMedium) Delete(ctx context.Context, keys ...string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}
