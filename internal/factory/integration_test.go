package factory

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/acctstore/internal/model"
	"github.com/mcoot/acctstore/internal/services/auth"
	redisstorage "github.com/mcoot/acctstore/internal/storage/redis"
	"github.com/mcoot/acctstore/internal/testutil"
)

var (
	homeIP = netip.MustParseAddr("198.51.100.1")
	roamIP = netip.MustParseAddr("2001:db8:1::1")
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp(model.FormatV1)
	s.ctx = context.Background()
}

// Test: account lifecycle from registration through rename and deletion
func (s *IntegrationSuite) TestAccountLifecycle() {
	// Step 1: Register two players whose display names collide
	alice, err := s.app.AuthService.Register(s.ctx, "Alice", "hunter2", homeIP)
	s.Require().NoError(err)
	s.Equal("alice.alice.acc", alice.FileName())

	bob, err := s.app.AuthService.Register(s.ctx, "Bob", "swordfish", homeIP)
	s.Require().NoError(err)
	s.Require().NoError(s.app.Store.Rename(s.ctx, bob, "Carol"))

	carol, err := s.app.AuthService.Register(s.ctx, "Carol", "letmein", homeIP)
	s.Require().NoError(err)
	s.Equal("Carol_", carol.DisplayName())

	// Step 2: Log in from a new address a day later
	s.app.MockClock.Advance(24 * time.Hour)
	_, err = s.app.AuthService.Login(s.ctx, "ALICE", "hunter2", roamIP)
	s.Require().NoError(err)

	// Step 3: Everything is visible through a fresh listing
	accts, err := s.app.Store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(accts, 3)
	s.Equal([]string{"alice.alice.acc", "bob.carol.acc", "carol.carol_.acc"}, s.app.MemoryDir.Names())
	s.Equal(roamIP, accts[0].LastLoginIP())
	s.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), accts[0].CreationDate().Time())

	// Step 4: Change password and delete
	s.Require().NoError(s.app.AuthService.ChangePassword(s.ctx, "carol", "letmein", "better"))
	s.Require().NoError(s.app.Store.Delete(s.ctx, bob))

	_, err = s.app.AuthService.Login(s.ctx, "Bob", "swordfish", homeIP)
	s.ErrorIs(err, auth.ErrInvalidCredentials)

	// Step 5: Metrics reflect the run
	s.Equal(3.0, promtestutil.ToFloat64(s.app.Metrics.AccountsCreated))
	s.Equal(1.0, promtestutil.ToFloat64(s.app.Metrics.CollisionProbes))
	count, err := promtestutil.GatherAndCount(s.app.Registry)
	s.Require().NoError(err)
	s.Positive(count)
}

func (s *IntegrationSuite) TestLegacyFormatApp() {
	app := NewTestApp(model.FormatLegacy)

	_, err := app.AuthService.Register(s.ctx, "Alice", "hunter2", roamIP)
	s.ErrorIs(err, model.ErrUnsupportedAddressFamily)

	_, err = app.AuthService.Register(s.ctx, "Alice", "hunter2", homeIP)
	s.Require().NoError(err)

	_, err = app.AuthService.Login(s.ctx, "Alice", "hunter2", roamIP)
	s.ErrorIs(err, model.ErrUnsupportedAddressFamily)
}

// Backend wiring through New

type BackendSuite struct {
	suite.Suite
	ctx context.Context
}

func TestBackendSuite(t *testing.T) {
	suite.Run(t, new(BackendSuite))
}

func (s *BackendSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *BackendSuite) exercise(app *App) {
	acct, err := app.Store.Create(s.ctx, "Alice", make([]byte, model.PasswordHashSize), homeIP)
	s.Require().NoError(err)
	s.Require().NoError(app.Store.Rename(s.ctx, acct, "Queen"))

	found, err := app.Store.FindByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Queen", found.DisplayName())
	s.Equal("alice.queen.acc", found.FileName())
}

func (s *BackendSuite) TestFSWithLock() {
	dir := filepath.Join(s.T().TempDir(), "accounts")

	app, err := New(Config{
		StorageType: StorageTypeFS,
		Dir:         dir,
		Lock:        true,
		Logger:      testutil.NopLogger(),
		AuthConfig:  auth.Config{Time: 1, Memory: 64, Threads: 1},
	})
	s.Require().NoError(err)
	defer app.Close()

	s.exercise(app)

	_, err = os.Stat(filepath.Join(dir, "alice.queen.acc"))
	s.NoError(err)
}

func (s *BackendSuite) TestMemory() {
	app, err := New(Config{StorageType: StorageTypeMemory, Registerer: prometheus.NewRegistry()})
	s.Require().NoError(err)
	s.exercise(app)
}

func (s *BackendSuite) TestRedisWithLock() {
	mr := miniredis.RunT(s.T())
	cfg := redisstorage.DefaultConfig()
	cfg.URL = "redis://" + mr.Addr()

	app, err := New(Config{
		StorageType: StorageTypeRedis,
		Dir:         "shard-1",
		RedisConfig: &cfg,
		Lock:        true,
	})
	s.Require().NoError(err)
	defer app.Close()

	s.exercise(app)
	s.True(mr.Exists("acct:shard-1:file:alice.queen.acc"))
	s.False(mr.Exists("acct:shard-1:lock"))
}

func (s *BackendSuite) TestRedisRequiresConfig() {
	_, err := New(Config{StorageType: StorageTypeRedis})
	s.Error(err)
}

func (s *BackendSuite) TestZeroFormatDefaultsToV1() {
	app, err := New(Config{
		StorageType: StorageTypeMemory,
		AuthConfig:  auth.Config{Time: 1, Memory: 64, Threads: 1},
	})
	s.Require().NoError(err)
	s.Equal(model.FormatV1, app.Store.Version())

	acct, err := app.AuthService.Register(s.ctx, "Alice", "hunter2", roamIP)
	s.Require().NoError(err)
	s.Equal(model.FormatV1, acct.FormatVersion())
	s.Equal(roamIP, acct.CreationIP())
}

func (s *BackendSuite) TestUnknownStorageType() {
	_, err := New(Config{StorageType: "tape"})
	s.Error(err)
}
