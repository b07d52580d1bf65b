package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSource reads secrets from individual files in a directory.
//
// Each secret lives in a file named after it. Files must not be readable by
// group or others (mode 0600 or 0400); anything looser is rejected rather
// than silently used. Trailing newlines are trimmed.
type FileSource struct {
	Dir string
}

// NewFileSource creates a directory source.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Name implements Source.
func (s *FileSource) Name() string { return "file" }

// Lookup implements Source.
func (s *FileSource) Lookup(_ context.Context, name string) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: no file for %s", ErrNotFound, redactName(name))
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("secret path for %s is a directory", redactName(name))
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return "", fmt.Errorf("secret file for %s has insecure permissions %04o (want 0600 or 0400)", redactName(name), perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// path maps a secret name to a file inside Dir, refusing names that would
// escape it.
func (s *FileSource) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid secret name %q", redactName(name))
	}
	path := filepath.Join(s.Dir, name)
	rel, err := filepath.Rel(s.Dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid secret name %q", redactName(name))
	}
	return path, nil
}
