package navstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/infra/logging"
)

// SQLiteRepositoryConfig holds configuration for the SQLite navigation state repository.
type SQLiteRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/authui.db"`
}

// SQLiteRepository implements Repository using SQLite as the storage backend.
type SQLiteRepository struct {
	db        *sql.DB
	log       logging.Logger
	now       func() time.Time
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepositoryFactory creates a factory function that returns a new SQLiteRepository.
func SQLiteRepositoryFactory(cfg SQLiteRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteRepository(cfg)
	}
}

// NewSQLiteRepository opens the database at cfg.DatabasePath and creates the
// schema if needed.
func NewSQLiteRepository(cfg SQLiteRepositoryConfig) (*SQLiteRepository, error) {
	log := logging.GetLogger("repo.navstate.sqlite_navstate_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeDB(db); err != nil {
		db.Close()

		return nil, fmt.Errorf("initialize db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()

		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteRepository{
		db:        db,
		log:       log,
		now:       time.Now,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS navigation_states (
			token        TEXT    PRIMARY KEY,
			display_user TEXT    NOT NULL,
			expires_at   INTEGER NOT NULL,
			created_at   INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := db.Exec(
		"CREATE INDEX IF NOT EXISTS navigation_states_expires_at ON navigation_states (expires_at)",
	); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	return nil
}

// Put implements Repository.Put using SQLite.
func (r *SQLiteRepository) Put(
	ctx context.Context,
	token string,
	payload domain.NavigationPayload,
	ttl time.Duration,
) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	now := r.now()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO navigation_states (token, display_user, expires_at, created_at) VALUES (?, ?, ?, ?)",
		token,
		payload.User,
		now.Add(ttl).UnixMilli(),
		now.UnixMilli(),
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				err = errors.Join(domain.ErrNavigationStateExists, err)
			}
		}

		return fmt.Errorf("insert navigation state: %w", err)
	}

	return nil
}

// Take implements Repository.Take using SQLite. The row is deleted whether
// or not it has expired.
func (r *SQLiteRepository) Take(ctx context.Context, token string) (_ domain.NavigationPayload, err error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NavigationPayload{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		payload   domain.NavigationPayload
		expiresAt int64
	)

	err = tx.QueryRowContext(ctx,
		"SELECT display_user, expires_at FROM navigation_states WHERE token = ?",
		token,
	).Scan(&payload.User, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrNavigationStateNotFound, err)
		}

		return domain.NavigationPayload{}, fmt.Errorf("query navigation state: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM navigation_states WHERE token = ?", token); err != nil {
		return domain.NavigationPayload{}, fmt.Errorf("delete navigation state: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.NavigationPayload{}, fmt.Errorf("commit: %w", err)
	}

	if expiresAt <= r.now().UnixMilli() {
		return domain.NavigationPayload{}, domain.ErrNavigationStateNotFound
	}

	return payload, nil
}

// Purge implements Repository.Purge using SQLite.
func (r *SQLiteRepository) Purge(ctx context.Context) (int64, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM navigation_states WHERE expires_at <= ?",
		r.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if n > 0 {
		r.log.DebugContext(ctx, "purged expired navigation states", "count", n)
	}

	return n, nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
