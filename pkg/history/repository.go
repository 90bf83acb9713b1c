// Package history persists the install-attempt ledger. The retry_update
// signal is cooperative: the caller re-drives the installer with an
// incremented retry count, and this ledger is what remembers how many
// attempts a package has already consumed across invocations.
package history

import (
	"database/sql"
	"log/slog"

	"github.com/otacore/recovery/pkg/errors"
	_ "modernc.org/sqlite"
)

// Repository provides database operations for install attempts.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (and if needed creates) the ledger at dbPath.
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("history_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("history_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open history database")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("history_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create history schema")
	}

	slog.Info("history_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Record inserts one attempt row.
func (r *Repository) Record(a *Attempt) error {
	slog.Info("history_record", "package", a.PackagePath, "attempt", a.Attempt, "result", a.Result)

	query := `
		INSERT INTO attempts (package_path, attempt, result, wipe_cache, time_total, log_path)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		a.PackagePath, a.Attempt, a.Result, boolToInt(a.WipeCache), a.TimeTotal, a.LogPath)
	if err != nil {
		slog.Error("history_insert_failed", "package", a.PackagePath, "error", err)
		return errors.Wrap(err, "failed to record attempt")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert id")
	}
	a.ID = id
	return nil
}

// Last returns the most recent attempt for a package, or nil when the
// package has never been tried.
func (r *Repository) Last(packagePath string) (*Attempt, error) {
	query := `
		SELECT id, package_path, attempt, result, wipe_cache, time_total, log_path, created_at
		FROM attempts WHERE package_path = ?
		ORDER BY attempt DESC LIMIT 1
	`
	a, err := scanAttempt(r.db.QueryRow(query, packagePath))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("history_query_failed", "package", packagePath, "error", err)
		return nil, errors.Wrap(err, "failed to query last attempt")
	}
	return a, nil
}

// ListByPackage returns all attempts for a package, oldest first.
func (r *Repository) ListByPackage(packagePath string) ([]*Attempt, error) {
	query := `
		SELECT id, package_path, attempt, result, wipe_cache, time_total, log_path, created_at
		FROM attempts WHERE package_path = ?
		ORDER BY attempt ASC
	`
	return r.list(query, packagePath)
}

// List returns every recorded attempt, newest first.
func (r *Repository) List() ([]*Attempt, error) {
	query := `
		SELECT id, package_path, attempt, result, wipe_cache, time_total, log_path, created_at
		FROM attempts ORDER BY created_at DESC, id DESC
	`
	return r.list(query)
}

func (r *Repository) list(query string, args ...any) ([]*Attempt, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		slog.Error("history_list_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list attempts")
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan attempt row")
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "attempt rows error")
	}
	return attempts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*Attempt, error) {
	var a Attempt
	var wipeCache int
	var logPath sql.NullString
	if err := row.Scan(&a.ID, &a.PackagePath, &a.Attempt, &a.Result,
		&wipeCache, &a.TimeTotal, &logPath, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.WipeCache = wipeCache != 0
	a.LogPath = logPath.String
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
