package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"itsdone/logger"
	"itsdone/model"
)

// TasksKey is the single slot the task list snapshot lives under.
const TasksKey = "@ItsDone:tasks"

// Store is the on-device persistence layer: a sqlite-backed key/value
// table holding JSON blobs.
type Store struct {
	conn *sql.DB
}

func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to init cache schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Get returns the raw value under key; the second result reports
// whether the key was present.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(key, value string) error {
	_, err := s.conn.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if _, err := s.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// ReadAll returns the last-persisted task list. Missing or unreadable
// content yields an empty list; failures are logged, never surfaced.
func (s *Store) ReadAll() []model.Task {
	raw, ok, err := s.Get(TasksKey)
	if err != nil {
		logger.Warn("cache read failed", zap.Error(err))
		return []model.Task{}
	}
	if !ok {
		return []model.Task{}
	}

	var tasks []model.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		logger.Warn("cache content unreadable, starting empty", zap.Error(err))
		return []model.Task{}
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks
}

// WriteAll unconditionally overwrites the persisted snapshot with the
// full task list.
func (s *Store) WriteAll(tasks []model.Task) error {
	raw, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	return s.Set(TasksKey, string(raw))
}
