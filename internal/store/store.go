// Package store persists document metadata and the indexing status in a
// local SQLite database. One durable table keyed by content fingerprint
// holds the records; a single-row table holds the status singleton.
//
// All operations are safe for concurrent use. Multi-statement status
// updates are serialized through one store-wide mutex so counter
// increments are never lost.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/yonie/localpdfvault/internal/domain"
	"github.com/yonie/localpdfvault/internal/search"
)

// ErrNotFound is returned when no record exists for a fingerprint.
var ErrNotFound = errors.New("document not found")

// timeLayout is RFC3339 with fixed-width fractional seconds. Timestamps
// are compared as strings in SQL (ORDER BY last_updated), so every
// value must render at the same length; RFC3339Nano drops trailing
// zeros and mis-sorts sub-second neighbors.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    fingerprint TEXT PRIMARY KEY,
    source_path TEXT NOT NULL,
    subject TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL DEFAULT '',
    sender TEXT NOT NULL DEFAULT '',
    recipient TEXT NOT NULL DEFAULT '',
    document_type TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    extraction_error TEXT NOT NULL DEFAULT '',
    last_updated TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_last_updated ON documents(last_updated DESC);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(document_type);

CREATE TABLE IF NOT EXISTS indexing_status (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    is_running INTEGER NOT NULL DEFAULT 0,
    run_id TEXT NOT NULL DEFAULT '',
    current_file TEXT NOT NULL DEFAULT '',
    processed INTEGER NOT NULL DEFAULT 0,
    total INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    errors INTEGER NOT NULL DEFAULT 0,
    last_directory TEXT NOT NULL DEFAULT '',
    stop_requested INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL DEFAULT ''
);

INSERT OR IGNORE INTO indexing_status (id) VALUES (1);
`

// Store is the SQLite-backed metadata store.
type Store struct {
	db     *sql.DB
	dbPath string
	ranker *search.Ranker

	// statusMu serializes every status read-modify-write sequence.
	// Without it, concurrent increments from the orchestrator and a
	// single-document reindex could lose updates.
	statusMu sync.Mutex
}

// New opens (creating if necessary) the database at dbPath.
//
// The status singleton is reset to defaults on open: a crash or restart
// during a run must never leave a stale is_running=true behind.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s := &Store{
		db:     db,
		dbPath: dbPath,
		ranker: search.NewRanker(),
	}

	if err := s.ResetStatus(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reset status: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// ─────────────────────────────────────────────────────────────────────────────
// Documents
// ─────────────────────────────────────────────────────────────────────────────

// Upsert inserts or fully replaces the record for its fingerprint.
func (s *Store) Upsert(rec domain.DocumentRecord) error {
	if rec.Fingerprint == "" {
		return errors.New("fingerprint is required")
	}

	tags, err := json.Marshal(tagsOrEmpty(rec.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = time.Now().UTC()
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO documents
		(fingerprint, source_path, subject, summary, date, sender, recipient, document_type, tags, extraction_error, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Fingerprint, rec.SourcePath, rec.Subject, rec.Summary, rec.Date,
		rec.Sender, rec.Recipient, rec.DocumentType, string(tags),
		rec.ExtractionError, rec.LastUpdated.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Get returns the record for a fingerprint, or ErrNotFound.
func (s *Store) Get(fingerprint string) (domain.DocumentRecord, error) {
	row := s.db.QueryRow(`
		SELECT fingerprint, source_path, subject, summary, date, sender, recipient,
		       document_type, tags, extraction_error, last_updated
		FROM documents WHERE fingerprint = ?`, fingerprint)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DocumentRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("get document: %w", err)
	}
	return rec, nil
}

// Delete removes the record for a fingerprint. Deleting a missing
// fingerprint is not an error.
func (s *Store) Delete(fingerprint string) error {
	if _, err := s.db.Exec("DELETE FROM documents WHERE fingerprint = ?", fingerprint); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// DeleteAll removes every stored record.
func (s *Store) DeleteAll() error {
	if _, err := s.db.Exec("DELETE FROM documents"); err != nil {
		return fmt.Errorf("delete all documents: %w", err)
	}
	return nil
}

// List returns up to limit records ordered by last-updated descending.
func (s *Store) List(limit int) ([]domain.DocumentRecord, error) {
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}

	rows, err := s.db.Query(`
		SELECT fingerprint, source_path, subject, summary, date, sender, recipient,
		       document_type, tags, extraction_error, last_updated
		FROM documents ORDER BY last_updated DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Stats returns collection statistics: total count, counts per non-empty
// document type, and the number of records carrying an extraction error.
func (s *Store) Stats() (domain.Stats, error) {
	stats := domain.Stats{ByType: make(map[string]int)}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("count documents: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT document_type, COUNT(*) FROM documents
		WHERE document_type != ''
		GROUP BY document_type`)
	if err != nil {
		return stats, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return stats, fmt.Errorf("scan type count: %w", err)
		}
		stats.ByType[typ] = n
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate type counts: %w", err)
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM documents WHERE extraction_error != ''").Scan(&stats.Errors); err != nil {
		return stats, fmt.Errorf("count errors: %w", err)
	}
	return stats, nil
}

// Search ranks the full record set against the query. Empty queries
// yield no results; callers wanting everything should use List.
func (s *Store) Search(query string, limit int) ([]domain.SearchResult, error) {
	rows, err := s.db.Query(`
		SELECT fingerprint, source_path, subject, summary, date, sender, recipient,
		       document_type, tags, extraction_error, last_updated
		FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	return s.ranker.Rank(query, records, limit), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Indexing status
// ─────────────────────────────────────────────────────────────────────────────

// Status returns the current indexing status.
func (s *Store) Status() (domain.IndexingStatus, error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.readStatus()
}

// MutateStatus applies fn to the current status inside the store-wide
// critical section and writes the result back. Every increment must go
// through here: fetch-compute-write as one atomic step.
func (s *Store) MutateStatus(fn func(*domain.IndexingStatus)) error {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	status, err := s.readStatus()
	if err != nil {
		return err
	}
	fn(&status)
	return s.writeStatus(status)
}

// ResetStatus restores the status singleton to all-zero defaults.
func (s *Store) ResetStatus() error {
	return s.MutateStatus(func(st *domain.IndexingStatus) {
		*st = domain.IndexingStatus{}
	})
}

func (s *Store) readStatus() (domain.IndexingStatus, error) {
	var st domain.IndexingStatus
	var isRunning, stopRequested int
	err := s.db.QueryRow(`
		SELECT is_running, run_id, current_file, processed, total, skipped, errors,
		       last_directory, stop_requested
		FROM indexing_status WHERE id = 1`).Scan(
		&isRunning, &st.RunID, &st.CurrentFile, &st.Processed, &st.Total,
		&st.Skipped, &st.Errors, &st.LastDirectory, &stopRequested,
	)
	if err != nil {
		return st, fmt.Errorf("read status: %w", err)
	}
	st.IsRunning = isRunning != 0
	st.StopRequested = stopRequested != 0
	return st, nil
}

func (s *Store) writeStatus(st domain.IndexingStatus) error {
	_, err := s.db.Exec(`
		UPDATE indexing_status SET
			is_running = ?, run_id = ?, current_file = ?, processed = ?, total = ?,
			skipped = ?, errors = ?, last_directory = ?, stop_requested = ?, updated_at = ?
		WHERE id = 1`,
		boolToInt(st.IsRunning), st.RunID, st.CurrentFile, st.Processed, st.Total,
		st.Skipped, st.Errors, st.LastDirectory, boolToInt(st.StopRequested),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	var tags, lastUpdated string

	err := row.Scan(
		&rec.Fingerprint, &rec.SourcePath, &rec.Subject, &rec.Summary, &rec.Date,
		&rec.Sender, &rec.Recipient, &rec.DocumentType, &tags,
		&rec.ExtractionError, &lastUpdated,
	)
	if err != nil {
		return rec, err
	}

	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return rec, fmt.Errorf("parse tags: %w", err)
	}
	rec.Tags = tagsOrEmpty(rec.Tags)

	if t, err := time.Parse(time.RFC3339Nano, lastUpdated); err == nil {
		rec.LastUpdated = t
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]domain.DocumentRecord, error) {
	var records []domain.DocumentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return records, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
