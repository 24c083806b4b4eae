package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/types"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SnapshotRecord is one row per match; State holds the JSON document.
type SnapshotRecord struct {
	MatchID   string `gorm:"primaryKey;size:64"`
	Seq       int64  `gorm:"not null"`
	State     []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (SnapshotRecord) TableName() string { return "match_snapshots" }

var _ Repository = (*GormRepository)(nil)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// OpenPostgres connects and migrates the snapshot table.
func OpenPostgres(dsn string, verbose bool) (*GormRepository, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if verbose {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&SnapshotRecord{}); err != nil {
		return nil, fmt.Errorf("migrate snapshots: %w", err)
	}
	return NewGormRepository(db), nil
}

// SaveSnapshot upserts, keeping the higher sequence number if two writes race.
func (r *GormRepository) SaveSnapshot(ctx context.Context, snap types.Snapshot) error {
	state, err := json.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	rec := SnapshotRecord{MatchID: snap.MatchID, Seq: snap.Seq, State: state}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"seq", "state", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "match_snapshots.seq <= excluded.seq"},
		}},
	}).Create(&rec).Error
}

func (r *GormRepository) LoadSnapshot(ctx context.Context, matchID string) (types.Snapshot, error) {
	var rec SnapshotRecord
	err := r.db.WithContext(ctx).Where("match_id = ?", matchID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return types.Snapshot{}, err
	}

	var state engine.State
	if err := json.Unmarshal(rec.State, &state); err != nil {
		return types.Snapshot{}, fmt.Errorf("decode state for %s: %w", matchID, err)
	}
	return types.Snapshot{MatchID: rec.MatchID, Seq: rec.Seq, State: state}, nil
}
