// Package history keeps a ledger of completed negotiations. Sessions in
// progress are never stored; a row is written once Run has returned.
package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Iron-Ham/negotiator/internal/errors"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 20

// Record is one completed negotiation.
type Record struct {
	SessionID string
	Agent     string
	PeerID    string
	Outcome   string
	Rounds    int
	SelfDice  int
	PeerDice  int
	Transport string
	Profile   string
	StartedAt time.Time
	Duration  time.Duration
}

// Stats summarizes the ledger.
type Stats struct {
	Total     int64
	ByOutcome map[string]int64
	AvgRounds float64
}

// Store persists Records with gorm.
type Store struct {
	db *gorm.DB
}

// Open opens the database for driver and dsn and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	db, err := OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&outcomeRow{}); err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}
	return nil
}

// Record stores rec. A session id can only be recorded once.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.SessionID == "" {
		return errors.NewValidationError("session id is required").WithField("SessionID")
	}
	if rec.Outcome == "" {
		return errors.NewValidationError("outcome is required").WithField("Outcome")
	}
	row := rowFromRecord(rec)
	row.CreatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record outcome %s: %w", rec.SessionID, err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var rows []outcomeRow
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

// Stats counts records per outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var groups []struct {
		Outcome string
		Count   int64
		Rounds  int64
	}
	err := s.db.WithContext(ctx).
		Model(&outcomeRow{}).
		Select("outcome, COUNT(*) AS count, COALESCE(SUM(rounds), 0) AS rounds").
		Group("outcome").
		Scan(&groups).Error
	if err != nil {
		return Stats{}, fmt.Errorf("outcome stats: %w", err)
	}

	stats := Stats{ByOutcome: make(map[string]int64, len(groups))}
	var rounds int64
	for _, g := range groups {
		stats.ByOutcome[g.Outcome] = g.Count
		stats.Total += g.Count
		rounds += g.Rounds
	}
	if stats.Total > 0 {
		stats.AvgRounds = float64(rounds) / float64(stats.Total)
	}
	return stats, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
