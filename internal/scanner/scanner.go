// Package scanner provides filesystem-side primitives for the indexing
// pipeline: discovering candidate PDF files under a directory tree and
// fingerprinting file content. Both are exposed as small types so the
// orchestrator can consume them behind interfaces and tests can inject
// controlled implementations.
package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SHA256Hasher fingerprints files by streaming their bytes through
// SHA-256. Memory use is bounded regardless of file size.
type SHA256Hasher struct{}

// HashFile returns the lowercase hex SHA-256 digest of the file's contents.
func (SHA256Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PDFWalker enumerates PDF files under a root directory.
type PDFWalker struct{}

// FindPDFs walks root recursively and returns every file whose name ends
// in ".pdf" (case-insensitive). The full listing is gathered up front -
// the orchestrator needs a stable total for progress reporting.
//
// If progress is non-nil it is invoked once per directory visited, so a
// UI can show feedback during long scans.
//
// Unreadable subtrees are skipped rather than aborting the walk: a
// partial listing is still useful.
func (PDFWalker) FindPDFs(root string, progress func(dir string)) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Permissions or a race with a concurrent delete.
			// Skip this subtree and keep going.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if progress != nil {
				progress(path)
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".pdf") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
