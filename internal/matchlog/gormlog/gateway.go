// Package gormlog stores match logs in a SQL database through gorm.
// Postgres is used in production; sqlite backs local runs and tests.
package gormlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mcoot/pongmatch-go/internal/dependencies/clock"
	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/model"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects the database behind the match log
type Config struct {
	Driver string
	DSN    string
}

// Gateway is a gorm implementation of the match log gateway
type Gateway struct {
	db     *gorm.DB
	clock  clock.Clock
	logger *slog.Logger
}

// Ensure Gateway implements the interface
var _ matchlog.Gateway = (*Gateway)(nil)

// Open connects to the configured database and migrates the schema
func Open(cfg Config, clock clock.Clock, logger *slog.Logger) (*Gateway, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown match log driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s match log: %w", cfg.Driver, err)
	}
	return New(db, clock, logger)
}

// New wraps an open gorm connection and migrates the schema
func New(db *gorm.DB, clock clock.Clock, logger *slog.Logger) (*Gateway, error) {
	if err := db.AutoMigrate(&MatchRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate match log: %w", err)
	}
	return &Gateway{
		db:     db,
		clock:  clock,
		logger: logger.With(slog.String("component", "matchlog")),
	}, nil
}

// Close releases the underlying connection pool
func (g *Gateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *Gateway) SaveInitialMatch(ctx context.Context, meta model.MetaData, rule model.RuleData) (model.LogID, error) {
	rec := newMatchRecord(meta, rule)
	rec.CreatedAt = g.clock.Now()

	if err := g.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", fmt.Errorf("failed to create match log: %w", err)
	}

	g.logger.Debug("match log created",
		slog.String("log_id", rec.ID),
		slog.String("room_id", rec.RoomID))
	return model.LogID(rec.ID), nil
}

func (g *Gateway) SaveFinalMatch(ctx context.Context, final matchlog.FinalMatch) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec MatchRecord
		var err error
		if final.LogID != "" {
			err = tx.First(&rec, "id = ?", string(final.LogID)).Error
		} else {
			err = tx.Where("room_id = ?", string(final.RoomID)).
				Order("created_at desc").
				First(&rec).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrMatchLogNotFound
		}
		if err != nil {
			return err
		}

		existing := rec.toRecord()
		write, err := matchlog.CheckFinal(&existing, final)
		if err != nil || !write {
			return err
		}

		return tx.Model(&rec).Updates(map[string]any{
			"blue_score":  final.ScoreBlue,
			"red_score":   final.ScoreRed,
			"winner_seq":  int64(final.WinnerUserID),
			"finished_at": g.clock.Now(),
		}).Error
	})
}

func (g *Gateway) GetMatch(ctx context.Context, logID model.LogID) (*matchlog.Record, error) {
	var rec MatchRecord
	err := g.db.WithContext(ctx).First(&rec, "id = ?", string(logID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrMatchLogNotFound
	}
	if err != nil {
		return nil, err
	}
	r := rec.toRecord()
	return &r, nil
}

func (g *Gateway) ListMatches(ctx context.Context, userID model.UserID, limit int) ([]matchlog.Record, error) {
	q := g.db.WithContext(ctx).
		Where("blue_user_seq = ? OR red_user_seq = ?", int64(userID), int64(userID)).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []MatchRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]matchlog.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}
	return records, nil
}
