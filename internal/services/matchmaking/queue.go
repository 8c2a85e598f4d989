// Package matchmaking pairs waiting players first-come first-served.
// Casual and ranked players wait in separate lists and are never paired
// across them.
package matchmaking

import (
	"log/slog"
	"sync"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// Entry is one waiting player and the rules they asked for
type Entry struct {
	Session *model.Session
	Rule    model.RuleData
}

// Pair is two entries removed from the head of a list.
// Initiator is the one that waited longest.
type Pair struct {
	Initiator Entry
	Responder Entry
}

// Queue holds the casual and ranked waiting lists
type Queue struct {
	mu     sync.Mutex
	casual []Entry
	ranked []Entry
	logger *slog.Logger
}

// New creates an empty Queue
func New(logger *slog.Logger) *Queue {
	return &Queue{
		logger: logger.With(slog.String("component", "matchmaking")),
	}
}

// Enqueue appends the session to the list selected by rule.IsRankGame.
// If the list then holds two or more entries the two oldest are removed
// and returned. The same session enqueued twice occupies two slots.
func (q *Queue) Enqueue(session *model.Session, rule model.RuleData) (*Pair, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.list(rule.IsRankGame)
	*list = append(*list, Entry{Session: session, Rule: rule})

	if len(*list) < 2 {
		q.logger.Info("player waiting",
			slog.Int64("user_id", int64(session.UserID)),
			slog.Bool("ranked", rule.IsRankGame))
		return nil, false
	}

	pair := &Pair{Initiator: (*list)[0], Responder: (*list)[1]}
	*list = append((*list)[:0:0], (*list)[2:]...)

	q.logger.Info("players paired",
		slog.Int64("initiator_id", int64(pair.Initiator.Session.UserID)),
		slog.Int64("responder_id", int64(pair.Responder.Session.UserID)),
		slog.Bool("ranked", rule.IsRankGame))
	return pair, true
}

// Dequeue removes the oldest entry for the session from the list selected
// by rule.IsRankGame. A missing entry is not an error: the player may
// already have been paired.
func (q *Queue) Dequeue(session *model.Session, rule model.RuleData) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.list(rule.IsRankGame)
	for i, e := range *list {
		if e.Session.ID == session.ID {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			q.logger.Info("player left queue",
				slog.Int64("user_id", int64(session.UserID)),
				slog.Bool("ranked", rule.IsRankGame))
			return true
		}
	}

	q.logger.Warn("dequeue for player not in queue",
		slog.String("session_id", string(session.ID)),
		slog.Bool("ranked", rule.IsRankGame))
	return false
}

// RemoveAll drops every entry for the session from both lists and returns
// how many were removed
func (q *Queue) RemoveAll(sessionID model.SessionID) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for _, list := range []*[]Entry{&q.casual, &q.ranked} {
		kept := (*list)[:0:0]
		for _, e := range *list {
			if e.Session.ID == sessionID {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		*list = kept
	}
	if removed > 0 {
		q.logger.Info("player removed from queues",
			slog.String("session_id", string(sessionID)),
			slog.Int("entries", removed))
	}
	return removed
}

// Contains reports whether the session has at least one entry in either list
func (q *Queue) Contains(sessionID model.SessionID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, list := range [][]Entry{q.casual, q.ranked} {
		for _, e := range list {
			if e.Session.ID == sessionID {
				return true
			}
		}
	}
	return false
}

// Len returns the number of waiting entries in one list
func (q *Queue) Len(ranked bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(*q.list(ranked))
}

func (q *Queue) list(ranked bool) *[]Entry {
	if ranked {
		return &q.ranked
	}
	return &q.casual
}
