package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	errpkg "github.com/artemiysm/TG-Video/internal/errors"
)

// partialSuffixes mark files yt-dlp is still writing or has left behind.
var partialSuffixes = []string{".part", ".ytdl", ".temp", ".tmp"}

// FileStorage manages per-user working directories under a downloads root.
type FileStorage struct {
	root string
}

// NewFileStorage creates a new FileStorage rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{root: dir}
}

// Root returns the downloads root directory.
func (s *FileStorage) Root() string {
	return s.root
}

// UserDir returns the working directory path of a user without creating it.
func (s *FileStorage) UserDir(userID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(userID, 10))
}

// EnsureUserDir creates the user's working directory if it is absent.
func (s *FileStorage) EnsureUserDir(userID int64) (string, error) {
	dir := s.UserDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create user dir: %w", err)
	}
	return dir, nil
}

// FileSize returns the size of the file in bytes.
func (s *FileStorage) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes a single file. A missing file is not an error.
func (s *FileStorage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Clear removes every entry inside dir and keeps dir itself.
// It returns the number of removed entries; a missing dir counts as empty.
func (s *FileStorage) Clear(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read dir: %w", err)
	}

	var errs []error
	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

// LatestFile returns the most recently modified complete file in dir.
func (s *FileStorage) LatestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}

	var (
		latest   string
		latestAt int64
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || isPartial(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestAt {
			latest = filepath.Join(dir, entry.Name())
			latestAt = mod
		}
	}

	if latest == "" {
		return "", errpkg.ErrNoOutputFile
	}
	return latest, nil
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
