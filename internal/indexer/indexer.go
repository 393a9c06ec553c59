// Package indexer drives one full indexing pass over a directory:
// walk, dedup-check, extract, persist - while exposing live progress
// through the store's status singleton and honoring cooperative
// cancellation at file boundaries.
//
// Dependency injection via interfaces makes the pipeline fully testable:
// the walker, hasher, extractor and clock are all swappable.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yonie/localpdfvault/internal/domain"
	"github.com/yonie/localpdfvault/internal/store"
)

// ErrRunActive is returned when a start request arrives while a pass is
// already running. Concurrent passes are rejected, never queued.
var ErrRunActive = errors.New("indexing already in progress")

// ErrNoRun is returned by Stop when no pass is active.
var ErrNoRun = errors.New("no indexing in progress")

// Extractor derives metadata from a PDF file via the vision model.
// On failure nothing is persisted for the file - it stays unindexed and
// is retried on a future pass.
type Extractor interface {
	// Extract returns fully-populated metadata fields or an error.
	Extract(ctx context.Context, path string) (domain.MetadataFields, error)

	// Ping checks that the extraction service is reachable.
	Ping(ctx context.Context) error
}

// Hasher fingerprints file content.
type Hasher interface {
	HashFile(path string) (string, error)
}

// Walker enumerates candidate PDF files under a root directory.
type Walker interface {
	FindPDFs(root string, progress func(dir string)) ([]string, error)
}

// Clock abstracts time access for reproducible tests.
type Clock interface {
	Now() time.Time
}

// RealClock uses the actual system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// Orchestrator owns the run lifecycle. At most one pass runs at a time;
// the guard is an explicit per-instance flag, not ambient state.
type Orchestrator struct {
	store     *store.Store
	extractor Extractor
	hasher    Hasher
	walker    Walker
	clock     Clock
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates an Orchestrator with all its dependencies injected.
func New(st *store.Store, ex Extractor, h Hasher, w Walker, clk Clock, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     st,
		extractor: ex,
		hasher:    h,
		walker:    w,
		clock:     clk,
		logger:    logger,
	}
}

// Start validates the request and launches a pass in the background.
// It returns immediately: progress is observed through the status
// record. Rejected (no state change) if a pass is already running or
// root is missing / not a directory.
func (o *Orchestrator) Start(root string, force bool) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("directory does not exist: %s", root)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", root)
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrRunActive
	}
	o.running = true
	o.mu.Unlock()

	runID := uuid.NewString()
	err = o.store.MutateStatus(func(st *domain.IndexingStatus) {
		*st = domain.IndexingStatus{
			IsRunning:     true,
			RunID:         runID,
			LastDirectory: root,
		}
	})
	if err != nil {
		o.setIdle()
		return fmt.Errorf("initialize run status: %w", err)
	}

	o.logger.Info("indexing run accepted", "run_id", runID, "root", root, "force", force)
	go o.run(runID, root, force)
	return nil
}

// Stop requests cooperative cancellation of the active pass. The run
// halts before the next file boundary; an in-flight extraction always
// completes or times out first.
func (o *Orchestrator) Stop() error {
	stopErr := ErrNoRun
	err := o.store.MutateStatus(func(st *domain.IndexingStatus) {
		if st.IsRunning {
			st.StopRequested = true
			stopErr = nil
		}
	})
	if err != nil {
		return err
	}
	return stopErr
}

// setIdle clears the in-memory run guard.
func (o *Orchestrator) setIdle() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

// run executes one full pass. It owns every status mutation while
// active; the status lock is never held across an extraction call.
func (o *Orchestrator) run(runID, root string, force bool) {
	ctx := context.Background()

	defer func() {
		o.setIdle()
		if err := o.store.MutateStatus(func(st *domain.IndexingStatus) {
			st.IsRunning = false
			st.CurrentFile = ""
		}); err != nil {
			o.logger.Error("finalize run status", "run_id", runID, "error", err)
		}
	}()

	// Pre-flight: no point walking anything if the model is unreachable.
	if err := o.extractor.Ping(ctx); err != nil {
		o.logger.Error("extraction service unreachable, aborting run", "run_id", runID, "error", err)
		o.mutateStatus(func(st *domain.IndexingStatus) {
			st.Errors++
		})
		return
	}

	files, err := o.walker.FindPDFs(root, func(dir string) {
		o.mutateStatus(func(st *domain.IndexingStatus) {
			st.CurrentFile = "Scanning: " + dir
		})
	})
	if err != nil {
		o.logger.Error("directory scan failed", "run_id", runID, "root", root, "error", err)
		o.mutateStatus(func(st *domain.IndexingStatus) {
			st.Errors++
		})
		return
	}

	o.mutateStatus(func(st *domain.IndexingStatus) {
		st.Total = len(files)
		st.CurrentFile = ""
	})
	o.logger.Info("scan complete", "run_id", runID, "files", len(files))

	for _, path := range files {
		if o.stopRequested() {
			o.logger.Info("run stopped by request", "run_id", runID)
			o.mutateStatus(func(st *domain.IndexingStatus) {
				st.StopRequested = false
				st.IsRunning = false
				st.CurrentFile = ""
			})
			return
		}

		o.processFile(ctx, runID, path, force)
	}

	status, _ := o.store.Status()
	o.logger.Info("run completed", "run_id", runID,
		"processed", status.Processed, "skipped", status.Skipped, "errors", status.Errors)
}

// processFile runs the per-file pipeline: hash, dedup, extract, persist.
// Every outcome increments processed exactly once.
func (o *Orchestrator) processFile(ctx context.Context, runID, path string, force bool) {
	name := filepath.Base(path)
	o.mutateStatus(func(st *domain.IndexingStatus) {
		st.CurrentFile = name
	})

	fingerprint, err := o.hasher.HashFile(path)
	if err != nil {
		o.logger.Warn("hash failed", "run_id", runID, "path", path, "error", err)
		o.mutateStatus(func(st *domain.IndexingStatus) {
			st.Errors++
			st.Processed++
		})
		return
	}

	existing, err := o.store.Get(fingerprint)
	if err == nil {
		if !force {
			o.logger.Debug("already indexed, skipping", "run_id", runID, "path", path)
			o.mutateStatus(func(st *domain.IndexingStatus) {
				st.Skipped++
				st.Processed++
			})
			return
		}
		// Forced reindex: drop the old record before re-extracting.
		if err := o.store.Delete(existing.Fingerprint); err != nil {
			o.logger.Warn("delete before reindex failed", "run_id", runID, "path", path, "error", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		o.logger.Warn("store lookup failed", "run_id", runID, "path", path, "error", err)
	}

	fields, err := o.extractor.Extract(ctx, path)
	if err != nil {
		// No fallback metadata: the file stays unindexed and will be
		// retried on the next pass.
		o.logger.Warn("extraction failed, not indexed", "run_id", runID, "path", path, "error", err)
		o.mutateStatus(func(st *domain.IndexingStatus) {
			st.Errors++
			st.Processed++
		})
		return
	}

	rec := recordFromFields(fingerprint, path, fields, o.clock.Now())
	upsertErr := o.store.Upsert(rec)
	if upsertErr != nil {
		o.logger.Error("store write failed", "run_id", runID, "path", path, "error", upsertErr)
	} else {
		o.logger.Info("indexed", "run_id", runID, "path", path, "fingerprint", fingerprint)
	}

	o.mutateStatus(func(st *domain.IndexingStatus) {
		if upsertErr != nil {
			st.Errors++
		}
		st.Processed++
	})
}

// Reindex re-extracts a single stored document outside a directory pass.
// It shares the single-run guard with Start: a reindex and a full pass
// are mutually exclusive since both write the status singleton.
func (o *Orchestrator) Reindex(fingerprint string) error {
	rec, err := o.store.Get(fingerprint)
	if err != nil {
		return err
	}
	if _, err := os.Stat(rec.SourcePath); err != nil {
		return fmt.Errorf("file not found on disk: %s", rec.SourcePath)
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrRunActive
	}
	o.running = true
	o.mu.Unlock()

	o.logger.Info("single-document reindex accepted", "fingerprint", fingerprint, "path", rec.SourcePath)

	go func() {
		defer o.setIdle()
		ctx := context.Background()

		if err := o.extractor.Ping(ctx); err != nil {
			o.logger.Error("extraction service unreachable, reindex aborted",
				"fingerprint", fingerprint, "error", err)
			return
		}

		if err := o.store.Delete(fingerprint); err != nil {
			o.logger.Error("delete before reindex failed", "fingerprint", fingerprint, "error", err)
			return
		}

		// Re-hash: the bytes may have changed since the original pass.
		newFingerprint, err := o.hasher.HashFile(rec.SourcePath)
		if err != nil {
			o.logger.Warn("hash failed during reindex", "path", rec.SourcePath, "error", err)
			return
		}

		fields, err := o.extractor.Extract(ctx, rec.SourcePath)
		if err != nil {
			o.logger.Warn("extraction failed during reindex, not indexed",
				"path", rec.SourcePath, "error", err)
			return
		}

		newRec := recordFromFields(newFingerprint, rec.SourcePath, fields, o.clock.Now())
		if err := o.store.Upsert(newRec); err != nil {
			o.logger.Error("store write failed during reindex", "path", rec.SourcePath, "error", err)
			return
		}
		o.logger.Info("reindexed", "path", rec.SourcePath, "fingerprint", newFingerprint)
	}()

	return nil
}

// mutateStatus wraps store.MutateStatus with error logging; a failed
// status write is reported but never aborts the pass.
func (o *Orchestrator) mutateStatus(fn func(*domain.IndexingStatus)) {
	if err := o.store.MutateStatus(fn); err != nil {
		o.logger.Error("status update failed", "error", err)
	}
}

// stopRequested reads the cancellation flag at a file boundary.
func (o *Orchestrator) stopRequested() bool {
	status, err := o.store.Status()
	if err != nil {
		o.logger.Error("status read failed", "error", err)
		return false
	}
	return status.StopRequested
}

func recordFromFields(fingerprint, path string, fields domain.MetadataFields, now time.Time) domain.DocumentRecord {
	return domain.DocumentRecord{
		Fingerprint:    fingerprint,
		SourcePath:     path,
		MetadataFields: fields,
		LastUpdated:    now,
	}
}
