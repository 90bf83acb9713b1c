package history

// Schema defines the SQLite schema for the install-attempt ledger. One row
// per (package path, attempt); the retry contract needs attempt counts to
// survive process restarts, since each retry is a fresh invocation.
const Schema = `
CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    package_path TEXT NOT NULL,
    attempt INTEGER NOT NULL,
    result TEXT NOT NULL CHECK(result IN ('success', 'corrupt', 'error', 'retry')),
    wipe_cache INTEGER NOT NULL DEFAULT 0,
    time_total INTEGER NOT NULL DEFAULT 0,
    log_path TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(package_path, attempt)
);

CREATE INDEX IF NOT EXISTS idx_attempts_package_path ON attempts(package_path);
CREATE INDEX IF NOT EXISTS idx_attempts_created_at ON attempts(created_at);
`

// Result constants stored in the attempts table.
const (
	ResultSuccess = "success"
	ResultCorrupt = "corrupt"
	ResultError   = "error"
	ResultRetry   = "retry"
)

// Attempt is one recorded install attempt.
type Attempt struct {
	ID          int64
	PackagePath string
	Attempt     int
	Result      string
	WipeCache   bool
	TimeTotal   int64
	LogPath     string
	CreatedAt   string
}
