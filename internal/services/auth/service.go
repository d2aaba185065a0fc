package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/netip"

	"golang.org/x/crypto/argon2"

	"github.com/mcoot/acctstore/internal/model"
	"github.com/mcoot/acctstore/internal/services/accounts"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyPassword      = errors.New("password must not be empty")
)

// saltContext separates this store's salts from any other use of the username
const saltContext = "acctstore/v1:"

// Config holds the argon2id cost parameters
type Config struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
	}
}

// Service registers and authenticates accounts held in an account store
type Service struct {
	store  *accounts.Store
	cfg    Config
	logger *slog.Logger
}

// New creates a new auth service
func New(store *accounts.Store, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if cfg.Time == 0 {
		cfg.Time = def.Time
	}
	if cfg.Memory == 0 {
		cfg.Memory = def.Memory
	}
	if cfg.Threads == 0 {
		cfg.Threads = def.Threads
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Service{store: store, cfg: cfg, logger: logger}
}

// HashPassword derives the value stored in an account's password slot. The
// salt comes from the folded username, so the hash survives display name
// changes but not a different username.
func (s *Service) HashPassword(username, password string) []byte {
	salt := sha256.Sum256([]byte(saltContext + model.FoldName(username)))
	return argon2.IDKey([]byte(password), salt[:], s.cfg.Time, s.cfg.Memory, s.cfg.Threads, model.PasswordHashSize)
}

// Register creates a new account for username
func (s *Service) Register(ctx context.Context, username, password string, ip netip.Addr) (*accounts.Account, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return s.store.Create(ctx, username, s.HashPassword(username, password), ip)
}

// Login checks the password for username and records ip as the last login
// address
func (s *Service) Login(ctx context.Context, username, password string, ip netip.Addr) (*accounts.Account, error) {
	acct, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if err := acct.SetLastLoginIP(ip); err != nil {
		return nil, fmt.Errorf("login address: %w", err)
	}
	if err := s.store.Persist(ctx, acct); err != nil {
		return nil, err
	}

	s.logger.Info("login", slog.String("username", acct.Username()), slog.String("ip", ip.String()))
	return acct, nil
}

// ChangePassword replaces the password of username after checking the
// current one
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if newPassword == "" {
		return ErrEmptyPassword
	}

	acct, err := s.authenticate(ctx, username, oldPassword)
	if err != nil {
		return err
	}

	if err := acct.SetPasswordHash(s.HashPassword(acct.Username(), newPassword)); err != nil {
		return err
	}
	if err := s.store.Persist(ctx, acct); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.String("username", acct.Username()))
	return nil
}

func (s *Service) authenticate(ctx context.Context, username, password string) (*accounts.Account, error) {
	acct, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) || errors.Is(err, model.ErrInvalidName) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	want := acct.PasswordHash()
	got := s.HashPassword(acct.Username(), password)
	if subtle.ConstantTimeCompare(want, got) != 1 {
		s.logger.Warn("failed login", slog.String("username", acct.Username()))
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}
