// Package store persists tasks per messaging-platform sender in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/alekspetrov/taskbot/internal/logging"
)

// busyTimeoutMillis is how long a connection waits on a locked database file.
const busyTimeoutMillis = 5000

// Supported database/sql driver names.
const (
	DriverPure = "sqlite"  // modernc.org/sqlite, no cgo
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
)

// Config selects the driver and data source.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// DefaultConfig returns a pure-Go SQLite database in the working directory.
func DefaultConfig() *Config {
	return &Config{
		Driver: DriverPure,
		DSN:    "taskbot.db",
	}
}

// Store is the task store. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	log *slog.Logger

	mu        sync.RWMutex
	listeners []func(Change)
	now       func() time.Time
}

// Open opens (creating if needed) the database described by cfg and runs
// migrations.
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPure
	}
	if driver != DriverPure && driver != DriverCGO {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	if isFilePath(cfg.DSN) {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open(driver, withBusyTimeout(driver, cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	return New(db)
}

// New wraps an existing database connection and runs migrations.
func New(db *sql.DB) (*Store, error) {
	s := &Store{
		db:  db,
		log: logging.WithComponent("store"),
		now: time.Now,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func isFilePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:")
}

// withBusyTimeout adds a busy timeout to on-disk DSNs in the driver's own
// parameter syntax unless the DSN already sets one.
func withBusyTimeout(driver, dsn string) string {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	param := fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMillis)
	if driver == DriverCGO {
		param = fmt.Sprintf("_busy_timeout=%d", busyTimeoutMillis)
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + param
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			sender_psid TEXT NOT NULL,
			task TEXT NOT NULL,
			dt DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_sender ON tasks(sender_psid)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// OnChange registers a listener invoked after every committed create or delete.
// Listeners run synchronously on the caller's goroutine.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(c)
	}
}

// Create persists a new task for senderID and returns it.
func (s *Store) Create(ctx context.Context, senderID, text string) (*Task, error) {
	if senderID == "" || text == "" {
		return nil, ErrInvalidTask
	}

	task := &Task{
		ID:        uuid.New().String(),
		SenderID:  senderID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, sender_psid, task, dt)
		VALUES (?, ?, ?, ?)
	`, task.ID, task.SenderID, task.Text, task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: insert task: %v", ErrStorage, err)
	}

	s.log.Debug("Task created", slog.String("task_id", task.ID), slog.String("sender_psid", senderID))
	s.notify(Change{Type: ChangeCreated, Task: task})
	return task, nil
}

// ListBySender returns a sender's tasks in insertion order.
func (s *Store) ListBySender(ctx context.Context, senderID string) ([]*Task, error) {
	return s.query(ctx, `
		SELECT id, sender_psid, task, dt
		FROM tasks WHERE sender_psid = ?
		ORDER BY rowid
	`, senderID)
}

// ListAll returns every task in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]*Task, error) {
	return s.query(ctx, `
		SELECT id, sender_psid, task, dt
		FROM tasks ORDER BY rowid
	`)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query tasks: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*Task{}
	for rows.Next() {
		var task Task
		if err := rows.Scan(&task.ID, &task.SenderID, &task.Text, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan task: %v", ErrStorage, err)
		}
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate tasks: %v", ErrStorage, err)
	}
	return tasks, nil
}

// Delete removes the task with the given id. It reports whether a task was
// removed; deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM tasks WHERE id = ?
		RETURNING id, sender_psid, task, dt
	`, id)

	var task Task
	if err := row.Scan(&task.ID, &task.SenderID, &task.Text, &task.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%w: delete task: %v", ErrStorage, err)
	}

	s.notify(Change{Type: ChangeDeleted, Task: &task})
	return true, nil
}

// Count returns the total number of stored tasks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count tasks: %v", ErrStorage, err)
	}
	return n, nil
}

// Optimize runs SQLite's housekeeping pragma.
func (s *Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA optimize`); err != nil {
		return fmt.Errorf("%w: optimize: %v", ErrStorage, err)
	}
	return nil
}
