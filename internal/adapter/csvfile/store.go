// Package csvfile reads and replaces the CSV handoff files shared with the
// external prediction pipeline.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
)

// Store maps each dataset kind to a file on disk.
// It implements pipeline.RowSource and pipeline.DatasetWriter.
type Store struct {
	dir   string
	paths map[domain.Kind]string
}

// NewStore creates a Store for the given data directory and file paths.
func NewStore(dir, predictionsPath, forecastsPath string) *Store {
	return &Store{
		dir: dir,
		paths: map[domain.Kind]string{
			domain.KindPredictions: predictionsPath,
			domain.KindForecasts:   forecastsPath,
		},
	}
}

// Path returns the file backing kind.
func (s *Store) Path(kind domain.Kind) (string, error) {
	p, ok := s.paths[kind]
	if !ok {
		return "", domain.ErrUnknownKind
	}
	return p, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// ReadRows reads every data row of the file for kind. A missing file yields
// zero rows and no error.
func (s *Store) ReadRows(_ context.Context, kind domain.Kind) ([]domain.Row, error) {
	p, err := s.Path(kind)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}

	rows, err := domain.ParseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", kind, err)
	}
	return rows, nil
}

// Replace atomically swaps the file for kind with data. The content is written
// to a temporary file in the same directory and renamed into place, so readers
// see either the old or the new file.
func (s *Store) Replace(_ context.Context, kind domain.Kind, data []byte) error {
	p, err := s.Path(kind)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // sync error takes precedence
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("replace %s: %w", kind, err)
	}
	return nil
}

// CheckReadiness reports whether the data directory exists and is readable.
func (s *Store) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", s.dir)
	}
	f, err := os.Open(s.dir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	return f.Close()
}
