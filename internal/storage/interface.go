package storage

import (
	"context"
)

// Directory is one flat namespace of account files.
//
// Names are base file names, never paths. Patterns use shell glob syntax
// ("*.alice.acc") and are matched against base names. Reading or deleting a
// missing file returns an error that matches fs.ErrNotExist.
//
// Listing and then writing is not atomic: two writers can both see a name as
// free. Wrap Store operations in a Locker when that matters.
type Directory interface {
	// Root describes where the files live (a directory path or key namespace)
	Root() string

	ReadFile(ctx context.Context, name string) ([]byte, error)
	WriteFile(ctx context.Context, name string, data []byte) error
	DeleteFile(ctx context.Context, name string) error

	// List returns the sorted base names matching pattern
	List(ctx context.Context, pattern string) ([]string, error)
	// Exists reports whether any file matches pattern
	Exists(ctx context.Context, pattern string) (bool, error)
}

// Locker serializes directory-wide check-then-write sequences
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// NopLocker is a Locker that never blocks
type NopLocker struct{}

// Lock returns immediately
func (NopLocker) Lock(context.Context) (func() error, error) {
	return func() error { return nil }, nil
}
