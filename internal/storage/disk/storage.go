package disk

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"

	"github.com/mcoot/acctstore/internal/storage"
)

// tempPrefix marks in-flight writes; it never matches an account pattern
// because temp names do not end in the account extension.
const tempPrefix = ".tmp-"

// Storage keeps account files in one directory of an afero filesystem
type Storage struct {
	fs   afero.Fs
	root string
}

// New opens (creating if needed) a directory on the OS filesystem
func New(root string) (*Storage, error) {
	return NewWithFs(afero.NewOsFs(), root)
}

// NewWithFs uses an existing filesystem (for testing)
func NewWithFs(fsys afero.Fs, root string) (*Storage, error) {
	root = filepath.Clean(root)
	if err := fsys.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create account directory %s: %w", root, err)
	}
	return &Storage{fs: fsys, root: root}, nil
}

// Ensure Storage implements the interface
var _ storage.Directory = (*Storage)(nil)

func (s *Storage) Root() string {
	return s.root
}

func (s *Storage) path(name string) string {
	return filepath.Join(s.root, name)
}

// File operations

func (s *Storage) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.path(name))
}

// WriteFile replaces name atomically: the data goes to a temp file in the
// same directory which is then renamed over the target.
func (s *Storage) WriteFile(ctx context.Context, name string, data []byte) error {
	tmp, err := afero.TempFile(s.fs, s.root, tempPrefix+name+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := s.fs.Rename(tmpName, s.path(name)); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Storage) DeleteFile(ctx context.Context, name string) error {
	return s.fs.Remove(s.path(name))
}

// Listing operations

func (s *Storage) List(ctx context.Context, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *Storage) Exists(ctx context.Context, pattern string) (bool, error) {
	names, err := s.List(ctx, pattern)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}
