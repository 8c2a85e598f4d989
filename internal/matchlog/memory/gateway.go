package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/pongmatch-go/internal/dependencies/clock"
	"github.com/mcoot/pongmatch-go/internal/dependencies/random"
	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/model"
)

// Gateway is an in-memory implementation of the match log gateway
type Gateway struct {
	mu      sync.RWMutex
	records map[model.LogID]*matchlog.Record
	clock   clock.Clock
	random  random.Random
}

// Ensure Gateway implements the interface
var _ matchlog.Gateway = (*Gateway)(nil)

// New creates a new in-memory match log
func New(clock clock.Clock, random random.Random) *Gateway {
	return &Gateway{
		records: make(map[model.LogID]*matchlog.Record),
		clock:   clock,
		random:  random,
	}
}

func (g *Gateway) SaveInitialMatch(ctx context.Context, meta model.MetaData, rule model.RuleData) (model.LogID, error) {
	now := g.clock.Now()
	record := &matchlog.Record{
		LogID:        model.LogID(g.random.UUID()),
		RoomID:       meta.RoomID,
		IsRankGame:   meta.IsRankGame,
		BlueUserID:   meta.PlayerBlue.UserID,
		RedUserID:    meta.PlayerRed.UserID,
		BlueNickname: meta.PlayerBlue.Nickname,
		RedNickname:  meta.PlayerRed.Nickname,
		PaddleSize:   rule.PaddleSize,
		BallSpeed:    rule.BallSpeed,
		MatchScore:   rule.MatchScore,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.records[record.LogID] = record
	return record.LogID, nil
}

func (g *Gateway) SaveFinalMatch(ctx context.Context, final matchlog.FinalMatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	record := g.find(final)
	if record == nil {
		return model.ErrMatchLogNotFound
	}

	write, err := matchlog.CheckFinal(record, final)
	if err != nil || !write {
		return err
	}

	now := g.clock.Now()
	record.ScoreBlue = final.ScoreBlue
	record.ScoreRed = final.ScoreRed
	record.WinnerUserID = final.WinnerUserID
	record.UpdatedAt = now
	record.FinishedAt = &now
	return nil
}

func (g *Gateway) GetMatch(ctx context.Context, logID model.LogID) (*matchlog.Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	record, ok := g.records[logID]
	if !ok {
		return nil, model.ErrMatchLogNotFound
	}
	c := *record
	return &c, nil
}

func (g *Gateway) ListMatches(ctx context.Context, userID model.UserID, limit int) ([]matchlog.Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var records []matchlog.Record
	for _, r := range g.records {
		if r.BlueUserID == userID || r.RedUserID == userID {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// find resolves the record by log ID, or the latest for the room
func (g *Gateway) find(final matchlog.FinalMatch) *matchlog.Record {
	if final.LogID != "" {
		return g.records[final.LogID]
	}
	var latest *matchlog.Record
	for _, r := range g.records {
		if r.RoomID != final.RoomID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest
}
