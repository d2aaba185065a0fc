package factory

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/acctstore/internal/dependencies/mocks"
	"github.com/mcoot/acctstore/internal/model"
	"github.com/mcoot/acctstore/internal/services/auth"
	"github.com/mcoot/acctstore/internal/storage"
	"github.com/mcoot/acctstore/internal/storage/memory"
	"github.com/mcoot/acctstore/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MemoryDir *memory.Storage
	Registry  *prometheus.Registry
}

// NewTestApp creates an App over an in-memory directory with a mocked clock
// and cheap password hashing
func NewTestApp(format model.FormatVersion) *TestApp {
	dir := memory.New("/accounts")
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	authCfg := auth.Config{Time: 1, Memory: 64, Threads: 1}

	app := newWithDependencies(dir, storage.NopLocker{}, mockClock, format, authCfg, reg, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MemoryDir: dir,
		Registry:  reg,
	}
}
