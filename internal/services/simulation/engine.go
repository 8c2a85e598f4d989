// Package simulation runs matches: one ticker goroutine per room, each tick
// stepping the room's state machine by one frame and publishing the events
// it produced.
package simulation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/pongmatch-go/internal/dependencies/clock"
	"github.com/mcoot/pongmatch-go/internal/model"
)

// Publisher receives every event produced by a tick.
// Implementations must be safe for concurrent use and must not block.
type Publisher interface {
	Publish(event model.Event)
}

// EndHandler is called from the room's goroutine once the match has ended
type EndHandler func(roomID model.RoomID)

// Engine owns the per-room timers
type Engine struct {
	cfg       Config
	publisher Publisher
	clock     clock.Clock
	logger    *slog.Logger

	mu     sync.Mutex
	timers map[model.RoomID]*timer
	onEnd  EndHandler
	wg     sync.WaitGroup
}

type timer struct {
	room   *Room
	cancel context.CancelFunc
	once   sync.Once
}

func (t *timer) stop() {
	t.once.Do(t.cancel)
}

// New creates a new Engine
func New(cfg Config, publisher Publisher, clock clock.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With(slog.String("component", "simulation")),
		timers:    make(map[model.RoomID]*timer),
	}
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// SetEndHandler sets the callback run when a room reaches the end state
func (e *Engine) SetEndHandler(h EndHandler) {
	e.mu.Lock()
	e.onEnd = h
	e.mu.Unlock()
}

// Start begins ticking a room
func (e *Engine) Start(room *Room) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.timers[room.ID()]; ok {
		return model.ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &timer{room: room, cancel: cancel}
	e.timers[room.ID()] = t

	e.wg.Add(1)
	go e.run(ctx, t)

	e.logger.Info("room started",
		slog.String("room_id", string(room.ID())),
		slog.Duration("tick_interval", e.cfg.TickInterval))
	return nil
}

// Stop cancels a room's timer. Only the first call for a room has any
// effect; it returns false for unknown or already stopped rooms.
// Stop never waits for the room's goroutine, so it is safe to call from
// an EndHandler.
func (e *Engine) Stop(roomID model.RoomID) bool {
	e.mu.Lock()
	t, ok := e.timers[roomID]
	if ok {
		delete(e.timers, roomID)
	}
	e.mu.Unlock()

	if !ok {
		return false
	}
	t.stop()
	e.logger.Info("room stopped", slog.String("room_id", string(roomID)))
	return true
}

// Running returns true if the room has an active timer
func (e *Engine) Running(roomID model.RoomID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.timers[roomID]
	return ok
}

// RunningCount returns the number of active timers
func (e *Engine) RunningCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

// Shutdown stops every room and waits for their goroutines to exit
func (e *Engine) Shutdown() {
	e.mu.Lock()
	timers := e.timers
	e.timers = make(map[model.RoomID]*timer)
	e.mu.Unlock()

	for _, t := range timers {
		t.stop()
	}
	e.wg.Wait()
	e.logger.Info("simulation engine stopped", slog.Int("stopped_rooms", len(timers)))
}

// run is the per-room loop. time.Ticker drops ticks a slow receiver misses,
// so a late frame delays the next one instead of queueing a burst, and every
// tick that is handled advances exactly one frame.
func (e *Engine) run(ctx context.Context, t *timer) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A stop can race the tick; the stop wins
			if ctx.Err() != nil {
				return
			}
			events, ended := t.room.Step(e.cfg)
			e.publish(events)
			if ended {
				e.finish(t.room.ID())
				return
			}
		}
	}
}

func (e *Engine) publish(events []model.Event) {
	if e.publisher == nil {
		return
	}
	now := e.clock.Now()
	for _, event := range events {
		event.Timestamp = now
		e.publisher.Publish(event)
	}
}

func (e *Engine) finish(roomID model.RoomID) {
	e.mu.Lock()
	onEnd := e.onEnd
	e.mu.Unlock()

	e.logger.Info("room reached end of match", slog.String("room_id", string(roomID)))
	if onEnd != nil {
		onEnd(roomID)
	}
	// No-op when the end handler already stopped the room
	e.Stop(roomID)
}
