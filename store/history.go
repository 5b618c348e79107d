// Package store persists run history to SQLite so a session's
// allocations can be inspected after the fact. The records are
// additive telemetry; in-memory results remain the source of truth
// while a run is in flight.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/crewkit/crewkit/crew"
)

// RunRecord is one crew run.
type RunRecord struct {
	ID        uint      `gorm:"primaryKey"`
	RunID     string    `gorm:"uniqueIndex;size:64"`
	Crew      string    `gorm:"size:128"`
	Tasks     int       `gorm:"not null"`
	Failures  int       `gorm:"not null"`
	StartedAt time.Time `gorm:"index"`
	Duration  time.Duration
	CreatedAt time.Time
}

// AssignmentRecord is one task outcome within a run.
type AssignmentRecord struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"index;size:64"`
	TaskID    string `gorm:"size:64"`
	TaskType  string `gorm:"size:64"`
	Task      string
	Agent     string `gorm:"index;size:128"`
	Matcher   string `gorm:"size:32"`
	FellBack  bool
	Failed    bool
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// Config configures the history store.
type Config struct {
	// Path to the SQLite file. ":memory:" keeps history in memory.
	Path string `yaml:"path" json:"path"`
}

// History persists run and assignment records.
type History struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (or creates) the database and migrates the schema.
func Open(cfg Config, logger *zap.Logger) (*History, error) {
	if cfg.Path == "" {
		cfg.Path = "crewkit.db"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", cfg.Path, err)
	}
	if err := db.AutoMigrate(&RunRecord{}, &AssignmentRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}

	return &History{
		db:     db,
		logger: logger.With(zap.String("component", "history")),
	}, nil
}

// SaveRun persists a completed run and its per-task outcomes in one
// transaction.
func (h *History) SaveRun(ctx context.Context, result *crew.RunResult) error {
	run := RunRecord{
		RunID:     result.RunID,
		Crew:      result.Crew,
		Tasks:     len(result.Results),
		Failures:  result.Failures(),
		StartedAt: result.StartedAt,
		Duration:  result.Duration,
	}

	assignments := make([]AssignmentRecord, len(result.Results))
	for i, res := range result.Results {
		assignments[i] = AssignmentRecord{
			RunID:    result.RunID,
			TaskID:   res.Assignment.Task.ID,
			TaskType: res.Assignment.Task.Type,
			Task:     res.Assignment.Task.Description,
			Agent:    res.Assignment.Agent.Name,
			Matcher:  res.Assignment.Matcher,
			FellBack: res.Assignment.FellBack,
			Failed:   res.Failed(),
			Error:    res.Error,
			Duration: res.Duration,
		}
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}
		return tx.Create(&assignments).Error
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}

	h.logger.Debug("run persisted",
		zap.String("run_id", result.RunID),
		zap.Int("assignments", len(assignments)))
	return nil
}

// Runs returns the most recent runs, newest first.
func (h *History) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []RunRecord
	err := h.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Assignments returns the task outcomes of one run, in insertion order.
func (h *History) Assignments(ctx context.Context, runID string) ([]AssignmentRecord, error) {
	var records []AssignmentRecord
	err := h.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list assignments for run %s: %w", runID, err)
	}
	return records, nil
}

// AgentLoad counts assignments per agent across all recorded runs.
func (h *History) AgentLoad(ctx context.Context) (map[string]int, error) {
	type row struct {
		Agent string
		N     int
	}
	var rows []row
	err := h.db.WithContext(ctx).
		Model(&AssignmentRecord{}).
		Select("agent, COUNT(*) AS n").
		Group("agent").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate agent load: %w", err)
	}

	load := make(map[string]int, len(rows))
	for _, r := range rows {
		load[r.Agent] = r.N
	}
	return load, nil
}

// Close releases the underlying connection pool.
func (h *History) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
