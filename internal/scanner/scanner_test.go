package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestHashFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	writeFile(t, path, "same bytes")

	h := SHA256Hasher{}
	first, err := h.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	second, err := h.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if first != second {
		t.Errorf("same content produced different digests: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(first))
	}
}

func TestHashFileIgnoresName(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "invoice.pdf")
	b := filepath.Join(dir, "renamed-copy.pdf")
	writeFile(t, a, "identical content")
	writeFile(t, b, "identical content")

	h := SHA256Hasher{}
	ha, err := h.HashFile(a)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	hb, err := h.HashFile(b)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if ha != hb {
		t.Errorf("identical content under different names hashed differently")
	}
}

func TestHashFileDiffersOnContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	writeFile(t, a, "version one")
	writeFile(t, b, "version two")

	h := SHA256Hasher{}
	ha, _ := h.HashFile(a)
	hb, _ := h.HashFile(b)
	if ha == hb {
		t.Errorf("different content produced the same digest")
	}
}

func TestHashFileMissing(t *testing.T) {
	h := SHA256Hasher{}
	if _, err := h.HashFile(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFindPDFs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.pdf"), "x")
	writeFile(t, filepath.Join(dir, "sub", "nested.PDF"), "x")
	writeFile(t, filepath.Join(dir, "sub", "deeper", "third.Pdf"), "x")
	writeFile(t, filepath.Join(dir, "sub", "notes.txt"), "x")
	writeFile(t, filepath.Join(dir, "readme.md"), "x")

	w := PDFWalker{}
	files, err := w.FindPDFs(dir, nil)
	if err != nil {
		t.Fatalf("FindPDFs: %v", err)
	}

	want := []string{
		filepath.Join(dir, "sub", "deeper", "third.Pdf"),
		filepath.Join(dir, "sub", "nested.PDF"),
		filepath.Join(dir, "top.pdf"),
	}
	sort.Strings(files)
	if len(files) != len(want) {
		t.Fatalf("found %d files, want %d: %v", len(files), len(want), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}

func TestFindPDFsProgress(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "one.pdf"), "x")
	writeFile(t, filepath.Join(dir, "b", "two.pdf"), "x")

	var visited []string
	w := PDFWalker{}
	if _, err := w.FindPDFs(dir, func(d string) { visited = append(visited, d) }); err != nil {
		t.Fatalf("FindPDFs: %v", err)
	}

	// Root plus both subdirectories.
	if len(visited) != 3 {
		t.Errorf("progress called %d times, want 3: %v", len(visited), visited)
	}
}

func TestFindPDFsEmptyDir(t *testing.T) {
	w := PDFWalker{}
	files, err := w.FindPDFs(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("FindPDFs: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
}

func TestFindPDFsMissingRoot(t *testing.T) {
	w := PDFWalker{}
	files, err := w.FindPDFs(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	// The walk callback swallows the root stat error, so no files and no error.
	if err != nil {
		t.Fatalf("FindPDFs: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files for missing root, got %v", files)
	}
}
