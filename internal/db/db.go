// Package db is the record store: a SQLite database holding the tasks and
// task_logs tables, opened through the go-sqlcipher driver so the file can
// optionally be encrypted at rest.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// DriverName is registered by the go-sqlcipher import.
	DriverName = "sqlite3"

	// MaxOpenConns caps the pool. SQLite is single-writer, so high
	// connection counts are counterproductive.
	MaxOpenConns = 10

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns = 2
)

// Store wraps the sql.DB connection for the tasks and task_logs tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path. keyHex, when
// non-empty, is a 64-hex-char SQLCipher key applied via the _pragma_key DSN
// parameter.
func Open(path, keyHex string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	if keyHex != "" {
		dsn += fmt.Sprintf("&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", keyHex)
	}
	return OpenDSN(dsn)
}

// OpenDSN opens a store from a raw DSN. Exposed for test fixtures that use
// in-memory databases.
func OpenDSN(dsn string) (*Store, error) {
	sqlDB, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	// Verifies both connectivity and, when encrypted, that the key is right.
	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("verify database: %w", err)
	}

	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: sqlDB}, nil
}

// DB returns the underlying sql.DB for direct access when needed.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// TaskRow is a task as stored, timestamps in unix milliseconds.
type TaskRow struct {
	ID          string
	Title       string
	Description string
	CreatedAt   int64
}

// LogRow is an audit entry as stored. UpdatedContent holds a JSON object,
// or is NULL for deletions.
type LogRow struct {
	ID             string
	Timestamp      int64
	Action         string
	TaskID         string
	UpdatedContent sql.NullString
}

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, row TaskRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, created_at) VALUES (?, ?, ?, ?)`,
		row.ID, row.Title, row.Description, row.CreatedAt,
	)
	return err
}

// GetTask returns the task with the given id, or sql.ErrNoRows.
func (s *Store) GetTask(ctx context.Context, id string) (TaskRow, error) {
	var row TaskRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, created_at FROM tasks WHERE id = ?`, id,
	).Scan(&row.ID, &row.Title, &row.Description, &row.CreatedAt)
	return row, err
}

// UpdateTask overwrites the mutable fields of a task.
func (s *Store) UpdateTask(ctx context.Context, id, title, description string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ? WHERE id = ?`,
		title, description, id,
	)
	return err
}

// DeleteTask removes a task row.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// taskSearchClause matches tasks whose title or description contains the
// search text, case-insensitively. instr keeps LIKE metacharacters (% and _)
// literal, so search text is always a plain substring.
const taskSearchClause = `(? = '' OR instr(lower(title), lower(?)) > 0 OR instr(lower(description), lower(?)) > 0)`

// CountTasks returns the number of tasks matching the search text
// (all tasks when search is empty).
func (s *Store) CountTasks(ctx context.Context, search string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE `+taskSearchClause,
		search, search, search,
	).Scan(&total)
	return total, err
}

// ListTasks returns a page of matching tasks, newest first. rowid breaks
// ties between same-millisecond creations so pages are stable.
func (s *Store) ListTasks(ctx context.Context, search string, limit, offset int64) ([]TaskRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, created_at FROM tasks
		 WHERE `+taskSearchClause+`
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		search, search, search, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []TaskRow
	for rows.Next() {
		var row TaskRow
		if err := rows.Scan(&row.ID, &row.Title, &row.Description, &row.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, row)
	}
	return tasks, rows.Err()
}

// InsertLog appends an audit entry. Entries are never updated or deleted.
func (s *Store) InsertLog(ctx context.Context, row LogRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_logs (id, timestamp, action, task_id, updated_content) VALUES (?, ?, ?, ?, ?)`,
		row.ID, row.Timestamp, row.Action, row.TaskID, row.UpdatedContent,
	)
	return err
}

// CountLogs returns the total number of audit entries.
func (s *Store) CountLogs(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_logs`).Scan(&total)
	return total, err
}

// ListLogs returns a page of audit entries, newest first.
func (s *Store) ListLogs(ctx context.Context, limit, offset int64) ([]LogRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, action, task_id, updated_content FROM task_logs
		 ORDER BY timestamp DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogRow
	for rows.Next() {
		var row LogRow
		if err := rows.Scan(&row.ID, &row.Timestamp, &row.Action, &row.TaskID, &row.UpdatedContent); err != nil {
			return nil, err
		}
		entries = append(entries, row)
	}
	return entries, rows.Err()
}
