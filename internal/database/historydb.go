package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/packmap/internal/cache"
	"github.com/nao1215/packmap/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "packmap.db"

// ErrNoSnapshot is returned when the database holds no snapshot yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// HistoryDB stores extraction snapshots and the run log.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	-- Snapshots hold extracted control mappings, deduplicated by content
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint TEXT NOT NULL UNIQUE,
		frameworks TEXT NOT NULL,
		records INTEGER NOT NULL,
		mapping_json TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON snapshots(timestamp);

	-- Runs log every pipeline execution
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_fingerprint TEXT,
		creation_date TEXT NOT NULL,
		rule_count INTEGER DEFAULT 0,
		control_count INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_creation ON runs(creation_date);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Snapshot is a stored control mapping.
type Snapshot struct {
	ID          int64
	Fingerprint string
	Frameworks  []string
	Records     int
	Mapping     model.ControlMapping
	Timestamp   time.Time
}

// SaveSnapshot stores mapping unless a snapshot with the same content
// already exists. It returns the content fingerprint and whether a new row
// was inserted.
func (h *HistoryDB) SaveSnapshot(ctx context.Context, mapping model.ControlMapping) (string, bool, error) {
	fingerprint, err := cache.Fingerprint(mapping)
	if err != nil {
		return "", false, err
	}
	data, err := cache.Marshal(mapping)
	if err != nil {
		return "", false, err
	}

	query := `
	INSERT INTO snapshots (fingerprint, frameworks, records, mapping_json)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(fingerprint) DO NOTHING
	`

	result, err := h.db.ExecContext(ctx, query,
		fingerprint,
		strings.Join(mapping.FrameworkIDs(), ","),
		mapping.RecordCount(),
		string(data),
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to save snapshot: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return fingerprint, n > 0, nil
}

// LatestSnapshot returns the most recently stored snapshot.
// It returns ErrNoSnapshot when the database is empty.
func (h *HistoryDB) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	query := `
	SELECT id, fingerprint, frameworks, records, mapping_json, timestamp
	FROM snapshots
	ORDER BY id DESC
	LIMIT 1
	`
	return h.scanSnapshot(h.db.QueryRowContext(ctx, query))
}

// SnapshotByFingerprint returns the snapshot with the given fingerprint, or
// the single snapshot whose fingerprint starts with it. The prefix is compared
// literally.
func (h *HistoryDB) SnapshotByFingerprint(ctx context.Context, fingerprint string) (*Snapshot, error) {
	if fingerprint == "" {
		return nil, fmt.Errorf("%w: empty fingerprint", ErrNoSnapshot)
	}

	query := `
	SELECT id, fingerprint, frameworks, records, mapping_json, timestamp
	FROM snapshots
	WHERE substr(fingerprint, 1, length(?)) = ?
	ORDER BY id DESC
	LIMIT 2
	`

	rows, err := h.db.QueryContext(ctx, query, fingerprint, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var found []*Snapshot
	for rows.Next() {
		s, err := h.scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, fingerprint)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("ambiguous snapshot fingerprint prefix %q", fingerprint)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (h *HistoryDB) scanSnapshot(row rowScanner) (*Snapshot, error) {
	var s Snapshot
	var frameworks, mappingJSON, timestamp string

	err := row.Scan(&s.ID, &s.Fingerprint, &frameworks, &s.Records, &mappingJSON, &timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	s.Timestamp = parseTimestamp(timestamp)
	if frameworks != "" {
		s.Frameworks = strings.Split(frameworks, ",")
	}
	s.Mapping, err = cache.Unmarshal([]byte(mappingJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %d: %w", s.ID, err)
	}
	return &s, nil
}

// RunStatus is the outcome of a pipeline run.
type RunStatus string

const (
	// RunSucceeded marks a run that produced all outputs.
	RunSucceeded RunStatus = "succeeded"
	// RunFailed marks a run that aborted.
	RunFailed RunStatus = "failed"
)

// Run is one entry of the run log.
type Run struct {
	ID                  int64
	SnapshotFingerprint string
	CreationDate        time.Time
	RuleCount           int
	ControlCount        int
	Status              RunStatus
	Error               string
}

// RecordRun appends run to the run log and returns its ID.
func (h *HistoryDB) RecordRun(ctx context.Context, run *Run) (int64, error) {
	query := `
	INSERT INTO runs (snapshot_fingerprint, creation_date, rule_count, control_count, status, error)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := h.db.ExecContext(ctx, query,
		run.SnapshotFingerprint,
		run.CreationDate.UTC().Format(time.RFC3339),
		run.RuleCount,
		run.ControlCount,
		string(run.Status),
		run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}

	return result.LastInsertId()
}

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, COALESCE(snapshot_fingerprint, ''), creation_date, rule_count, control_count, status, COALESCE(error, '')
	FROM runs
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var creation, status string

		if err := rows.Scan(&r.ID, &r.SnapshotFingerprint, &creation, &r.RuleCount, &r.ControlCount, &status, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreationDate = parseTimestamp(creation)
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time if none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
