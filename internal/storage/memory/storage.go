package memory

import (
	"context"
	"io/fs"
	"path"
	"slices"
	"sync"

	"github.com/mcoot/acctstore/internal/storage"
)

// Operation names accepted by FailNext
const (
	OpRead   = "read"
	OpWrite  = "write"
	OpDelete = "delete"
	OpList   = "list"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	root     string
	files    map[string][]byte
	failures map[string][]error
}

// New creates a new in-memory directory. root is only used for display and
// path checks.
func New(root string) *Storage {
	return &Storage{
		root:     root,
		files:    make(map[string][]byte),
		failures: make(map[string][]error),
	}
}

// Ensure Storage implements the interface
var _ storage.Directory = (*Storage)(nil)

func (s *Storage) Root() string {
	return s.root
}

// FailNext makes the next call of op return err. Calls queue up in order.
func (s *Storage) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// Names returns every stored file name, sorted
func (s *Storage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// popFailure must be called with mu held for writing
func (s *Storage) popFailure(op string) error {
	queue := s.failures[op]
	if len(queue) == 0 {
		return nil
	}
	s.failures[op] = queue[1:]
	return queue[0]
}

// File operations

func (s *Storage) ReadFile(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(OpRead); err != nil {
		return nil, err
	}
	data, ok := s.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return slices.Clone(data), nil
}

func (s *Storage) WriteFile(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(OpWrite); err != nil {
		return err
	}
	s.files[name] = slices.Clone(data)
	return nil
}

func (s *Storage) DeleteFile(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(OpDelete); err != nil {
		return err
	}
	if _, ok := s.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(s.files, name)
	return nil
}

// Listing operations

func (s *Storage) List(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(OpList); err != nil {
		return nil, err
	}
	var names []string
	for name := range s.files {
		ok, err := path.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if ok {
			names = append(names, name)
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
