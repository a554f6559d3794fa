package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
)

type eventRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Version    uint64    `gorm:"not null;index"`
	Type       string    `gorm:"size:32;not null"`
	Source     string    `gorm:"size:16;not null"`
	Mode       string    `gorm:"size:16;not null"`
	Color      string    `gorm:"size:16;not null"`
	AutoStep   int       `gorm:"not null"`
	RedMs      int64     `gorm:"not null"`
	YellowMs   int64     `gorm:"not null"`
	GreenMs    int64     `gorm:"not null"`
	OccurredAt time.Time `gorm:"not null;index"`
}

func (eventRow) TableName() string { return "traffic_events" }

// Postgres stores entries through GORM.
type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	return NewPostgres(db)
}

// NewPostgres migrates the events table on db.
func NewPostgres(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&eventRow{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]eventRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, toRow(e))
	}
	if err := p.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]Entry, error) {
	var rows []eventRow
	q := p.db.WithContext(ctx).Order("occurred_at DESC, version DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, fromRow(r))
	}
	return entries, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(e Entry) eventRow {
	return eventRow{
		ID:         e.ID,
		Version:    e.Version,
		Type:       string(e.Type),
		Source:     string(e.Source),
		Mode:       string(e.Mode),
		Color:      string(e.Color),
		AutoStep:   e.AutoStep,
		RedMs:      e.Settings.Red.Milliseconds(),
		YellowMs:   e.Settings.Yellow.Milliseconds(),
		GreenMs:    e.Settings.Green.Milliseconds(),
		OccurredAt: e.At,
	}
}

func fromRow(r eventRow) Entry {
	return Entry{
		ID:       r.ID,
		Version:  r.Version,
		Type:     engine.EventType(r.Type),
		Source:   engine.Source(r.Source),
		Mode:     engine.Mode(r.Mode),
		Color:    engine.Color(r.Color),
		AutoStep: r.AutoStep,
		Settings: engine.Settings{
			Red:    time.Duration(r.RedMs) * time.Millisecond,
			Yellow: time.Duration(r.YellowMs) * time.Millisecond,
			Green:  time.Duration(r.GreenMs) * time.Millisecond,
		},
		At: r.OccurredAt,
	}
}
