// Package domain contains core data types used across the vault server.
// These are pure data structures with no behavior - making them easy to understand
// and test. Think of them as the "nouns" of our application.
package domain

import "time"

// DefaultSearchLimit is the maximum number of results a search returns
// when the caller doesn't ask for a specific limit.
const DefaultSearchLimit = 50

// DefaultListLimit is the maximum number of records returned when
// listing the whole collection.
const DefaultListLimit = 1000

// MetadataFields is the structured result of one vision extraction.
// Every field is mandatory with a defined default: the extractor
// normalizes the model's JSON once at the boundary, so the rest of the
// system never checks for field presence.
type MetadataFields struct {
	// Subject is the document title or main topic.
	Subject string `json:"subject"`

	// Summary is a brief 2-3 sentence summary of the content.
	Summary string `json:"summary"`

	// Date is the document date in YYYY-MM-DD format, or empty if not visible.
	Date string `json:"date"`

	// Sender is the from-side person, company, or organization.
	Sender string `json:"sender"`

	// Recipient is the to-side person, company, or organization.
	Recipient string `json:"recipient"`

	// DocumentType is the kind of document (invoice, contract, letter, ...).
	DocumentType string `json:"document_type"`

	// Tags are short categorization keywords, in model output order.
	Tags []string `json:"tags"`
}

// DocumentRecord is one indexed PDF. There is exactly one record per
// content fingerprint: re-extraction overwrites the record in place,
// never appends a duplicate.
type DocumentRecord struct {
	// Fingerprint is the SHA-256 hash of the file's bytes (primary key).
	// Stable across renames and moves; changes iff the bytes change.
	Fingerprint string `json:"fingerprint"`

	// SourcePath is the last known filesystem path. Display/open target
	// only - not part of identity.
	SourcePath string `json:"source_path"`

	// MetadataFields is embedded so the JSON shape stays flat.
	MetadataFields

	// ExtractionError is set iff the last extraction attempt failed.
	// A record with an error is not considered indexed.
	ExtractionError string `json:"extraction_error,omitempty"`

	// LastUpdated is the time of the last write to this record.
	LastUpdated time.Time `json:"last_updated"`
}

// IndexingStatus is the process-wide singleton describing the current
// (or most recent) indexing run. It is mutated only by the orchestrator
// while a run is active, and read by anyone polling progress.
type IndexingStatus struct {
	// IsRunning reports whether a directory pass is in flight.
	IsRunning bool `json:"is_running"`

	// RunID identifies the current/most recent run.
	RunID string `json:"run_id,omitempty"`

	// CurrentFile is a display string for progress UIs.
	CurrentFile string `json:"current_file"`

	// Counters for the current run. At pass completion,
	// Processed == Skipped + succeeded + Errors.
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`

	// LastDirectory is the root path of the most recent/ongoing run.
	LastDirectory string `json:"last_directory"`

	// StopRequested is the cooperative-cancellation flag. It is cleared
	// at the start of each run and whenever honored.
	StopRequested bool `json:"stop_requested"`
}

// TermMatch records which named fields contained a query term.
// Informational only - never used in scoring.
type TermMatch struct {
	Term   string   `json:"term"`
	Fields []string `json:"fields"`
}

// SearchResult pairs a record with its relevance score and per-term
// field annotations.
type SearchResult struct {
	Record DocumentRecord `json:"record"`
	Score  int            `json:"score"`
	// Matches lists, per query term, the fields that contained it.
	Matches []TermMatch `json:"matches"`
}

// Stats summarizes the stored collection.
type Stats struct {
	// Total is the number of stored records.
	Total int `json:"total"`

	// ByType counts records grouped by non-empty document type.
	ByType map[string]int `json:"by_type"`

	// Errors counts records carrying an extraction error.
	Errors int `json:"errors"`
}
