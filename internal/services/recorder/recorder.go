// Package recorder persists match logs without ever blocking the match
// that produced them. Saves run in their own goroutines; failed final saves
// are kept and retried by the housekeeping scheduler.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/model"
)

// Config holds configuration for the recorder
type Config struct {
	SaveTimeout time.Duration
	MaxAttempts int // Attempts per final save, including the first
}

// DefaultConfig returns default recorder configuration
func DefaultConfig() Config {
	return Config{
		SaveTimeout: 5 * time.Second,
		MaxAttempts: 10,
	}
}

type pendingFinal struct {
	final    matchlog.FinalMatch
	attempts int
}

// Recorder wraps a match log gateway with fire-and-forget saves
type Recorder struct {
	gateway matchlog.Gateway
	cfg     Config
	logger  *slog.Logger

	mu      sync.Mutex
	pending []pendingFinal
	wg      sync.WaitGroup
}

// New creates a new Recorder
func New(gateway matchlog.Gateway, cfg Config, logger *slog.Logger) *Recorder {
	return &Recorder{
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "recorder")),
	}
}

// Gateway returns the underlying match log gateway
func (r *Recorder) Gateway() matchlog.Gateway {
	return r.gateway
}

// RecordInitial saves the initial record in the background and hands the
// log ID to onSaved once the gateway acknowledges it. A failed save is only
// logged; the final save falls back to the room ID.
func (r *Recorder) RecordInitial(meta model.MetaData, rule model.RuleData, onSaved func(model.LogID)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.SaveTimeout)
		defer cancel()

		logID, err := r.gateway.SaveInitialMatch(ctx, meta, rule)
		if err != nil {
			r.logger.Warn("failed to save initial match log",
				slog.String("room_id", string(meta.RoomID)),
				slog.String("error", err.Error()))
			return
		}
		if onSaved != nil {
			onSaved(logID)
		}
	}()
}

// RecordFinal saves the outcome in the background, queueing it for retry
// if the gateway fails
func (r *Recorder) RecordFinal(final matchlog.FinalMatch) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.attempt(pendingFinal{final: final})
	}()
}

// RetryPending makes one more attempt at every queued final save.
// Returns the number of saves still queued afterwards.
func (r *Recorder) RetryPending(ctx context.Context) int {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, p := range batch {
		if ctx.Err() != nil {
			r.requeue(p)
			continue
		}
		r.attempt(p)
	}
	return r.Pending()
}

// Pending returns the number of final saves waiting for a retry
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Wait blocks until every in-flight save has returned
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) attempt(p pendingFinal) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.SaveTimeout)
	defer cancel()

	p.attempts++
	err := r.gateway.SaveFinalMatch(ctx, p.final)
	if err == nil {
		return
	}

	attrs := []any{
		slog.String("room_id", string(p.final.RoomID)),
		slog.String("log_id", string(p.final.LogID)),
		slog.Int("attempts", p.attempts),
		slog.String("error", err.Error()),
	}
	switch {
	case errors.Is(err, model.ErrMatchLogFinalized):
		r.logger.Error("match log already holds a different outcome", attrs...)
	case p.attempts >= r.cfg.MaxAttempts:
		r.logger.Error("giving up on final match log", attrs...)
	default:
		r.logger.Warn("final match log save failed, will retry", attrs...)
		r.requeue(p)
	}
}

func (r *Recorder) requeue(p pendingFinal) {
	r.mu.Lock()
	r.pending = append(r.pending, p)
	r.mu.Unlock()
}
