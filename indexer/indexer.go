package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"bountychain/core/events"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var ErrInvalidStatus = errors.New("indexer: status must be open or solved")

// Indexer records committed bounty events into a SQL store and serves
// listing queries that the key-value state cannot answer.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to driver ("sqlite" or "postgres") at dsn and migrates the
// schema.
func Open(driver, dsn string) (*Indexer, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Indexer, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, logger: slog.Default(), now: time.Now}, nil
}

// SetLogger configures the logger used for write failures.
func (i *Indexer) SetLogger(l *slog.Logger) {
	if l != nil {
		i.logger = l
	}
}

// Emit implements events.Emitter. Write failures are logged since the
// emitting transaction has already committed.
func (i *Indexer) Emit(evt events.Event) {
	if i == nil || evt == nil {
		return
	}
	if err := i.Record(context.Background(), evt); err != nil {
		i.logger.Error("index event failed",
			slog.String("type", evt.EventType()),
			slog.Any("error", err))
	}
}

// Record applies evt to the index. Unknown event types are ignored.
func (i *Indexer) Record(ctx context.Context, evt events.Event) error {
	now := i.now().UTC()
	switch e := evt.(type) {
	case events.PuzzleCreated:
		attrs := e.Event().Attributes
		record := PuzzleRecord{
			Number:    Uint64(e.Number),
			Status:    StatusOpen,
			Requester: attrs["requester"],
			Reward:    attrs["reward"],
			CreatedAt: now,
			UpdatedAt: now,
		}
		return i.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "number"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "requester", "reward", "updated_at"}),
		}).Create(&record).Error
	case events.PuzzleSolved:
		attrs := e.Event().Attributes
		return i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var record PuzzleRecord
			err := tx.First(&record, "number = ?", Uint64(e.Number)).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				record = PuzzleRecord{Number: Uint64(e.Number), CreatedAt: now}
			}
			record.Status = StatusSolved
			record.Solver = attrs["solver"]
			record.A = Uint64(e.A)
			record.B = Uint64(e.B)
			record.SolverShare = attrs["solverShare"]
			record.TreasuryShare = attrs["treasuryShare"]
			record.SolvedAt = &now
			record.UpdatedAt = now
			return tx.Save(&record).Error
		})
	default:
		return nil
	}
}

// List returns puzzles ordered by number. An empty status matches both open
// and solved puzzles; limit is clamped to MaxLimit.
func (i *Indexer) List(ctx context.Context, status string, limit int) ([]PuzzleRecord, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && status != StatusOpen && status != StatusSolved {
		return nil, ErrInvalidStatus
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	query := i.db.WithContext(ctx).Model(&PuzzleRecord{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var records []PuzzleRecord
	if err := query.Order("number ASC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the indexed record for number.
func (i *Indexer) Get(ctx context.Context, number uint64) (*PuzzleRecord, bool, error) {
	var record PuzzleRecord
	err := i.db.WithContext(ctx).First(&record, "number = ?", Uint64(number)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &record, true, nil
}

// Close releases the underlying connection pool.
func (i *Indexer) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ParseLimit parses a limit query parameter, returning DefaultLimit when raw
// is empty.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("indexer: invalid limit %q", raw)
	}
	return limit, nil
}
