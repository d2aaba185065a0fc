package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/netip"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mcoot/acctstore/internal/codec"
	"github.com/mcoot/acctstore/internal/dependencies/clock"
	"github.com/mcoot/acctstore/internal/metrics"
	"github.com/mcoot/acctstore/internal/model"
	"github.com/mcoot/acctstore/internal/storage"
)

// maxSuffixAttempts is how many underscores Create appends to a display name
// before giving up
const maxSuffixAttempts = 4

// Config holds configuration for the account store
type Config struct {
	// Version is the file layout the store reads and writes
	// If unset, defaults to model.DefaultFormat
	Version model.FormatVersion
	// Locker guards create and rename (optional, defaults to no locking)
	Locker storage.Locker
	// Metrics receives operation counters (optional)
	Metrics *metrics.Metrics
}

// DefaultConfig returns default store configuration
func DefaultConfig() Config {
	return Config{
		Version: model.DefaultFormat,
	}
}

// Store manages the account files of one directory. It keeps two invariants
// over the directory: one file per folded username, and one file per folded
// display name. Both are checked by listing the directory, so concurrent
// writers must share a Locker.
type Store struct {
	dir     storage.Directory
	clock   clock.Clock
	logger  *slog.Logger
	locker  storage.Locker
	metrics *metrics.Metrics
	version model.FormatVersion
}

// New creates a new account store over dir
func New(dir storage.Directory, clk clock.Clock, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Locker == nil {
		cfg.Locker = storage.NopLocker{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	return &Store{
		dir:     dir,
		clock:   clk,
		logger:  logger.With(slog.String("dir", dir.Root())),
		locker:  cfg.Locker,
		metrics: cfg.Metrics,
		version: cfg.Version.OrDefault(),
	}
}

// Version returns the file layout this store uses
func (s *Store) Version() model.FormatVersion {
	return s.version
}

// Path returns the full location of an account's file
func (s *Store) Path(acct *Account) string {
	if acct.state != StateBound {
		return ""
	}
	return filepath.Join(s.dir.Root(), acct.fileName)
}

// Create writes a new account file and returns it loaded back from disk.
//
// The display name starts as the username. If another account already shows
// that name, underscores are appended (up to maxSuffixAttempts) until a free
// one is found.
func (s *Store) Create(ctx context.Context, username string, passwordHash []byte, creationIP netip.Addr) (acct *Account, err error) {
	defer s.track(metrics.OpCreate, &err)

	if err := model.ValidateName(username); err != nil {
		return nil, fmt.Errorf("username %q: %w", username, err)
	}
	if len(passwordHash) != model.PasswordHashSize {
		return nil, fmt.Errorf("%w: got %d bytes", model.ErrInvalidHashLength, len(passwordHash))
	}
	if _, err := codec.AddressFamily(creationIP, s.version); err != nil {
		return nil, fmt.Errorf("creation IP: %w", err)
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	realName := model.FoldName(username)
	usernamePattern := realName + ".*" + model.FileExtension
	taken, err := s.dir.Exists(ctx, usernamePattern)
	if err != nil {
		return nil, &model.IOError{Op: "list", Name: usernamePattern, Err: err}
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", model.ErrDuplicateUsername, username)
	}

	suffix, err := s.uniqueSuffix(ctx, username)
	if err != nil {
		return nil, err
	}

	displayName := username + suffix
	fileName := model.AccountFileName(username, displayName)

	fresh := newDetached(model.AccountRecord{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreationIP:   creationIP,
		LastLoginIP:  creationIP,
		CreationDate: model.TicksFromTime(s.clock.Now()),
		Version:      s.version,
	})
	if err := s.write(ctx, fileName, fresh.record); err != nil {
		return nil, err
	}
	fresh.bind(fileName)

	acct, err = s.load(ctx, fileName)
	if err != nil {
		return nil, fmt.Errorf("reload created account: %w", err)
	}

	s.metrics.AccountsCreated.Inc()
	s.logger.Info("account created",
		slog.String("username", username),
		slog.String("display_name", displayName),
		slog.String("file", fileName),
	)
	return acct, nil
}

// uniqueSuffix finds the shortest run of underscores that makes the display
// name unique in the directory
func (s *Store) uniqueSuffix(ctx context.Context, username string) (string, error) {
	suffix := ""
	for attempt := 0; attempt <= maxSuffixAttempts; attempt++ {
		candidate := model.FoldName(username) + suffix
		if len(candidate) > model.MaxNameBytes || len(username+suffix) > model.MaxNameBytes {
			break
		}

		pattern := "*." + candidate + model.FileExtension
		taken, err := s.dir.Exists(ctx, pattern)
		if err != nil {
			return "", &model.IOError{Op: "list", Name: pattern, Err: err}
		}
		if !taken {
			return suffix, nil
		}

		s.metrics.CollisionProbes.Inc()
		s.logger.Debug("display name taken", slog.String("display_name", candidate))
		suffix += "_"
	}
	return "", fmt.Errorf("%w: %s", model.ErrCollisionExhausted, username)
}

// Load reads the account file at path. path may be a bare file name or a
// path inside the store's directory.
func (s *Store) Load(ctx context.Context, path string) (acct *Account, err error) {
	defer s.track(metrics.OpLoad, &err)

	name, err := s.fileName(path)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, name)
}

func (s *Store) load(ctx context.Context, name string) (*Account, error) {
	data, err := s.dir.ReadFile(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrAccountNotFound, name)
		}
		return nil, &model.IOError{Op: "read", Name: name, Err: err}
	}

	rec, err := codec.Decode(data, s.version)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	if expected := model.AccountFileName(rec.Username, rec.DisplayName); expected != name {
		s.logger.Warn("account file name does not match its contents",
			slog.String("file", name),
			slog.String("expected", expected),
		)
	}

	acct := newDetached(rec)
	acct.bind(name)
	return acct, nil
}

func (s *Store) fileName(path string) (string, error) {
	name := filepath.Base(path)
	if dir := filepath.Dir(path); dir != "." && !sameDir(dir, s.dir.Root()) {
		return "", fmt.Errorf("%w: %s", model.ErrForeignPath, path)
	}
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidName, path)
	}
	return name, nil
}

// sameDir compares two directories after resolving them against the working
// directory, so relative and absolute spellings of the root match
func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// FindByUsername loads the account owned by username (case-insensitive)
func (s *Store) FindByUsername(ctx context.Context, username string) (acct *Account, err error) {
	defer s.track(metrics.OpLoad, &err)

	if err := model.ValidateName(username); err != nil {
		return nil, fmt.Errorf("username %q: %w", username, err)
	}

	pattern := model.FoldName(username) + ".*" + model.FileExtension
	names, err := s.dir.List(ctx, pattern)
	if err != nil {
		return nil, &model.IOError{Op: "list", Name: pattern, Err: err}
	}
	switch len(names) {
	case 0:
		return nil, fmt.Errorf("%w: %s", model.ErrAccountNotFound, username)
	case 1:
		return s.load(ctx, names[0])
	default:
		return nil, fmt.Errorf("%w: %s has files %s", model.ErrDuplicateUsername, username, strings.Join(names, ", "))
	}
}

// List loads every account in the directory, ordered by file name
func (s *Store) List(ctx context.Context) (accts []*Account, err error) {
	defer s.track(metrics.OpLoad, &err)

	pattern := "*" + model.FileExtension
	names, err := s.dir.List(ctx, pattern)
	if err != nil {
		return nil, &model.IOError{Op: "list", Name: pattern, Err: err}
	}

	accts = make([]*Account, 0, len(names))
	for _, name := range names {
		acct, err := s.load(ctx, name)
		if err != nil {
			return nil, err
		}
		accts = append(accts, acct)
	}
	return accts, nil
}

// Rename changes an account's display name and moves its file to match.
//
// The new file is written before the old one is removed. If the old file
// cannot be removed the new file is deleted again, so on any error the
// account and the directory are as they were.
func (s *Store) Rename(ctx context.Context, acct *Account, newDisplayName string) (err error) {
	defer s.track(metrics.OpRename, &err)

	if acct.state != StateBound {
		return model.ErrAccountDetached
	}
	if err := model.ValidateName(newDisplayName); err != nil {
		return fmt.Errorf("display name %q: %w", newDisplayName, err)
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	oldName := acct.fileName
	newName := model.AccountFileName(acct.record.Username, newDisplayName)

	pattern := "*." + model.FoldName(newDisplayName) + model.FileExtension
	holders, err := s.dir.List(ctx, pattern)
	if err != nil {
		return &model.IOError{Op: "list", Name: pattern, Err: err}
	}
	if slices.ContainsFunc(holders, func(name string) bool { return name != oldName }) {
		return fmt.Errorf("%w: %s", model.ErrDisplayNameTaken, newDisplayName)
	}

	rec := acct.record.Clone()
	rec.DisplayName = newDisplayName
	if err := s.write(ctx, newName, rec); err != nil {
		return err
	}

	if newName != oldName {
		if err := s.dir.DeleteFile(ctx, oldName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			deleteErr := &model.IOError{Op: "delete", Name: oldName, Err: err}
			if rollbackErr := s.dir.DeleteFile(ctx, newName); rollbackErr != nil {
				s.logger.Error("rename rollback failed, both files exist",
					slog.String("old", oldName),
					slog.String("new", newName),
					slog.String("error", rollbackErr.Error()),
				)
				return errors.Join(deleteErr, &model.IOError{Op: "delete", Name: newName, Err: rollbackErr})
			}
			return deleteErr
		}
	}

	acct.record = rec
	acct.fileName = newName

	s.metrics.Renames.Inc()
	s.logger.Info("account renamed",
		slog.String("username", rec.Username),
		slog.String("display_name", newDisplayName),
		slog.String("old_file", oldName),
		slog.String("file", newName),
	)
	return nil
}

// Persist writes the account's current state over its bound file
func (s *Store) Persist(ctx context.Context, acct *Account) (err error) {
	defer s.track(metrics.OpPersist, &err)

	if acct.state != StateBound {
		return model.ErrAccountDetached
	}
	return s.write(ctx, acct.fileName, acct.record)
}

// Delete removes the account's file. The handle stays bound to the now
// missing file.
func (s *Store) Delete(ctx context.Context, acct *Account) (err error) {
	defer s.track(metrics.OpDelete, &err)

	if acct.state != StateBound {
		return model.ErrAccountDetached
	}
	if err := s.dir.DeleteFile(ctx, acct.fileName); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", model.ErrAccountNotFound, acct.fileName)
		}
		return &model.IOError{Op: "delete", Name: acct.fileName, Err: err}
	}

	s.logger.Info("account deleted",
		slog.String("username", acct.record.Username),
		slog.String("file", acct.fileName),
	)
	return nil
}

func (s *Store) write(ctx context.Context, name string, rec model.AccountRecord) error {
	data, err := codec.Encode(rec, s.version)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.dir.WriteFile(ctx, name, data); err != nil {
		return &model.IOError{Op: "write", Name: name, Err: err}
	}
	return nil
}

// lock takes the directory lock and returns a release func that only logs
// on failure
func (s *Store) lock(ctx context.Context) (func(), error) {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock account directory: %w", err)
	}
	return func() {
		if err := unlock(); err != nil {
			s.logger.Warn("failed to release directory lock", slog.String("error", err.Error()))
		}
	}, nil
}

func (s *Store) track(op string, err *error) {
	if *err != nil {
		s.metrics.Failed(op)
	}
}
