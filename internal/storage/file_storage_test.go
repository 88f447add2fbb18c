package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	errpkg "github.com/artemiysm/TG-Video/internal/errors"
)

func makeTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "filestorage_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
}

func TestFileStorage_EnsureUserDir(t *testing.T) {
	root := makeTempDir(t)
	fs := NewFileStorage(root)

	dir, err := fs.EnsureUserDir(42)
	if err != nil {
		t.Fatalf("EnsureUserDir error: %v", err)
	}

	if dir != filepath.Join(root, "42") {
		t.Errorf("expected dir %q, got %q", filepath.Join(root, "42"), dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected directory to exist, err=%v", err)
	}

	if _, err := fs.EnsureUserDir(42); err != nil {
		t.Errorf("second EnsureUserDir should be a no-op, got %v", err)
	}
}

func TestFileStorage_FileSize(t *testing.T) {
	root := makeTempDir(t)
	fs := NewFileStorage(root)

	path := filepath.Join(root, "data.txt")
	writeFile(t, path, "hello world")

	size, err := fs.FileSize(path)
	if err != nil {
		t.Fatalf("FileSize error: %v", err)
	}
	if size != 11 {
		t.Errorf("expected size 11, got %d", size)
	}
}

func TestFileStorage_Remove(t *testing.T) {
	root := makeTempDir(t)
	fs := NewFileStorage(root)

	path := filepath.Join(root, "gone.mp4")
	writeFile(t, path, "x")

	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected file to be removed")
	}
	if err := fs.Remove(path); err != nil {
		t.Errorf("removing a missing file should not fail, got %v", err)
	}
}

func TestFileStorage_Clear(t *testing.T) {
	root := makeTempDir(t)
	fs := NewFileStorage(root)

	dir, err := fs.EnsureUserDir(7)
	if err != nil {
		t.Fatalf("EnsureUserDir error: %v", err)
	}
	writeFile(t, filepath.Join(dir, "a.mp4"), "a")
	writeFile(t, filepath.Join(dir, "b.mp4.part"), "b")
	if err := os.Mkdir(filepath.Join(dir, "frags"), 0o755); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}

	n, err := fs.Clear(dir)
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 removed entries, got %d", n)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("working dir should still exist: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty dir, got %d entries", len(entries))
	}
}

func TestFileStorage_ClearMissingDir(t *testing.T) {
	fs := NewFileStorage(makeTempDir(t))

	n, err := fs.Clear(fs.UserDir(404))
	if err != nil || n != 0 {
		t.Errorf("expected (0, nil) for missing dir, got (%d, %v)", n, err)
	}
}

func TestFileStorage_LatestFile(t *testing.T) {
	root := makeTempDir(t)
	fs := NewFileStorage(root)

	older := filepath.Join(root, "older.mp4")
	newer := filepath.Join(root, "newer.mp4")
	partial := filepath.Join(root, "newest.mp4.part")
	writeFile(t, older, "1")
	writeFile(t, newer, "2")
	writeFile(t, partial, "3")

	base := time.Now().Add(-time.Hour)
	_ = os.Chtimes(older, base, base)
	_ = os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute))
	_ = os.Chtimes(partial, base.Add(2*time.Minute), base.Add(2*time.Minute))

	got, err := fs.LatestFile(root)
	if err != nil {
		t.Fatalf("LatestFile error: %v", err)
	}
	if got != newer {
		t.Errorf("expected %q, got %q", newer, got)
	}
}

func TestFileStorage_LatestFileEmpty(t *testing.T) {
	root := makeTempDir(t)
	fs := NewFileStorage(root)

	if _, err := fs.LatestFile(root); !errors.Is(err, errpkg.ErrNoOutputFile) {
		t.Errorf("expected ErrNoOutputFile, got %v", err)
	}
}
