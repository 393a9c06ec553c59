// Package testutil provides shared test helpers and mock implementations.
// This avoids duplicating mock code across test files.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yonie/localpdfvault/internal/domain"
)

// ErrNotFound is returned by mocks when a resource doesn't exist.
var ErrNotFound = errors.New("not found")

// MockExtractor returns controlled metadata per path. An optional
// ExtractHook runs after every call, letting tests interleave actions
// (e.g. requesting a stop) with the pipeline.
type MockExtractor struct {
	mu sync.Mutex

	// Fields maps path -> metadata returned for it.
	Fields map[string]domain.MetadataFields

	// Errs maps path -> extraction error for it.
	Errs map[string]error

	// PingErr, when set, fails the pre-flight connectivity check.
	PingErr error

	// ExtractHook, when set, runs after each Extract call.
	ExtractHook func(path string)

	// Calls records every extracted path in order.
	Calls []string
}

// NewMockExtractor creates a MockExtractor with initialized maps.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		Fields: make(map[string]domain.MetadataFields),
		Errs:   make(map[string]error),
	}
}

func (m *MockExtractor) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockExtractor) Extract(ctx context.Context, path string) (domain.MetadataFields, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, path)
	hook := m.ExtractHook
	fields, okFields := m.Fields[path]
	err := m.Errs[path]
	m.mu.Unlock()

	if hook != nil {
		hook(path)
	}
	if err != nil {
		return domain.MetadataFields{}, err
	}
	if !okFields {
		return domain.MetadataFields{Tags: []string{}}, nil
	}
	return fields, nil
}

// CallCount returns how many Extract calls were made.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockHasher returns controlled fingerprints per path.
type MockHasher struct {
	// Hashes maps path -> fingerprint. Paths without an entry fail.
	Hashes map[string]string
}

// NewMockHasher creates a MockHasher with an initialized map.
func NewMockHasher() *MockHasher {
	return &MockHasher{Hashes: make(map[string]string)}
}

func (m *MockHasher) HashFile(path string) (string, error) {
	if h, ok := m.Hashes[path]; ok {
		return h, nil
	}
	return "", ErrNotFound
}

// MockWalker returns a fixed file listing for any root.
type MockWalker struct {
	Files []string
	Dirs  []string
}

func (m *MockWalker) FindPDFs(root string, progress func(dir string)) ([]string, error) {
	if progress != nil {
		for _, d := range m.Dirs {
			progress(d)
		}
	}
	return m.Files, nil
}

// MockClock returns a settable time for reproducible tests.
type MockClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewMockClock creates a clock fixed at the given time.
// If t is zero, uses 2024-01-01 00:00:00 UTC.
func NewMockClock(t time.Time) *MockClock {
	if t.IsZero() {
		t = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &MockClock{t: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Advance moves the clock forward.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = m.t.Add(d)
}
