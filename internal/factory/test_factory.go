package factory

import (
	"time"

	"github.com/mcoot/pongmatch-go/internal/dependencies/mocks"
	matchlogmemory "github.com/mcoot/pongmatch-go/internal/matchlog/memory"
	"github.com/mcoot/pongmatch-go/internal/services/auth"
	"github.com/mcoot/pongmatch-go/internal/services/simulation"
	"github.com/mcoot/pongmatch-go/internal/storage/memory"
	"github.com/mcoot/pongmatch-go/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// Memory backends for direct inspection
	MemoryStorage  *memory.Storage
	MemoryMatchLog *matchlogmemory.Gateway
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Rooms tick every millisecond; warm-up lasts warmupFrames ticks.
func NewTestApp(warmupFrames int64) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	matchLogs := matchlogmemory.New(mockClock, mocks.NewMockRandom())

	simCfg := simulation.DefaultConfig()
	simCfg.TickInterval = time.Millisecond
	simCfg.WarmupFrames = warmupFrames

	app, err := newWithDependencies(store, matchLogs, mockClock, mockRandom, auth.DefaultConfig(), simCfg, testutil.NopLogger())
	if err != nil {
		// Only gocron registration can fail, and only on invalid intervals
		panic(err)
	}

	return &TestApp{
		App:            app,
		MockClock:      mockClock,
		MockRandom:     mockRandom,
		MemoryStorage:  store,
		MemoryMatchLog: matchLogs,
	}
}
