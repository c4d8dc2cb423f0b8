// Package artifacts keeps CI artifacts, reports and cache entries in a local
// directory laid out like the S3 buckets they are published to.
package artifacts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/zulandar/praktika/internal/settings"
)

// ErrNotFound is returned by Get for paths that hold no object.
var ErrNotFound = errors.New("artifacts: not found")

// Store maps S3 paths ("bucket/key") onto files below Root.
type Store struct {
	Root     string
	Settings settings.Settings
	// BaseURL, when set, makes URL point at a report server serving Root under
	// /artifacts instead of the bucket's public endpoint.
	BaseURL string
}

// NewStore returns a Store rooted at root.
func NewStore(root string, s settings.Settings) *Store {
	return &Store{Root: root, Settings: s}
}

// Path returns the local file for s3Path. Paths escaping the root are rejected.
func (s *Store) Path(s3Path string) (string, error) {
	bucket, key := settings.SplitS3Path(s3Path)
	clean := path.Clean("/" + path.Join(bucket, key))
	if bucket == "" || key == "" || clean == "/" || slices.Contains(strings.Split(s3Path, "/"), "..") {
		return "", fmt.Errorf("artifacts: invalid path %q", s3Path)
	}
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes r to s3Path, replacing any existing object atomically.
func (s *Store) Put(s3Path string, r io.Reader) error {
	dst, err := s.Path(s3Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("artifacts: put %s: %w", s3Path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("artifacts: put %s: %w", s3Path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("artifacts: put %s: %w", s3Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifacts: put %s: %w", s3Path, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("artifacts: put %s: %w", s3Path, err)
	}
	return nil
}

// PutBytes writes data to s3Path.
func (s *Store) PutBytes(s3Path string, data []byte) error {
	return s.Put(s3Path, bytes.NewReader(data))
}

// Get reads the object at s3Path.
func (s *Store) Get(s3Path string) ([]byte, error) {
	p, err := s.Path(s3Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s3Path)
		}
		return nil, fmt.Errorf("artifacts: get %s: %w", s3Path, err)
	}
	return data, nil
}

// Exists reports whether an object is stored at s3Path.
func (s *Store) Exists(s3Path string) bool {
	p, err := s.Path(s3Path)
	if err != nil {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// List returns the S3 paths of all objects under prefix, sorted.
func (s *Store) List(prefix string) ([]string, error) {
	dir, err := s.Path(prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("artifacts: list %s: %w", prefix, err)
	}
	sort.Strings(out)
	return out, nil
}

// URL returns where the object at s3Path can be viewed.
func (s *Store) URL(s3Path string) (string, error) {
	if s.BaseURL != "" {
		bucket, key := settings.SplitS3Path(s3Path)
		return strings.TrimRight(s.BaseURL, "/") + "/artifacts/" + path.Join(bucket, key), nil
	}
	return s.Settings.HTTPURL(s3Path)
}
