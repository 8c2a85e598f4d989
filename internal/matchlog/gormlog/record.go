package gormlog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/model"
)

// MatchRecord is the persisted row for one match
type MatchRecord struct {
	ID           string  `gorm:"primaryKey;type:varchar(36)"`
	RoomID       string  `gorm:"index;not null"`
	IsRankGame   bool    `gorm:"not null;default:false"`
	BlueUserSeq  int64   `gorm:"index;not null"`
	RedUserSeq   int64   `gorm:"index;not null"`
	BlueUserName string  `gorm:"type:varchar(64)"`
	RedUserName  string  `gorm:"type:varchar(64)"`
	WinnerSeq    int64   `gorm:"default:0"`
	BlueScore    int     `gorm:"default:0"`
	RedScore     int     `gorm:"default:0"`
	PaddleSize   float64 `gorm:"not null"`
	BallSpeed    float64 `gorm:"not null"`
	MatchScore   int     `gorm:"not null"`

	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
	FinishedAt *time.Time
}

// TableName overrides the gorm default
func (MatchRecord) TableName() string {
	return "match_logs"
}

// BeforeCreate assigns the primary key so every dialect gets the same IDs
func (r *MatchRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func newMatchRecord(meta model.MetaData, rule model.RuleData) *MatchRecord {
	return &MatchRecord{
		RoomID:       string(meta.RoomID),
		IsRankGame:   meta.IsRankGame,
		BlueUserSeq:  int64(meta.PlayerBlue.UserID),
		RedUserSeq:   int64(meta.PlayerRed.UserID),
		BlueUserName: meta.PlayerBlue.Nickname,
		RedUserName:  meta.PlayerRed.Nickname,
		PaddleSize:   rule.PaddleSize,
		BallSpeed:    rule.BallSpeed,
		MatchScore:   rule.MatchScore,
	}
}

func (r *MatchRecord) toRecord() matchlog.Record {
	return matchlog.Record{
		LogID:        model.LogID(r.ID),
		RoomID:       model.RoomID(r.RoomID),
		IsRankGame:   r.IsRankGame,
		BlueUserID:   model.UserID(r.BlueUserSeq),
		RedUserID:    model.UserID(r.RedUserSeq),
		BlueNickname: r.BlueUserName,
		RedNickname:  r.RedUserName,
		WinnerUserID: model.UserID(r.WinnerSeq),
		ScoreBlue:    r.BlueScore,
		ScoreRed:     r.RedScore,
		PaddleSize:   r.PaddleSize,
		BallSpeed:    r.BallSpeed,
		MatchScore:   r.MatchScore,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		FinishedAt:   r.FinishedAt,
	}
}
