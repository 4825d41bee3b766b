// Package store persists programs, scope targets, probe results and
// analyses in SQLite through gorm.
//
// Programs are upserted by handle. A program's scope is replaced as a
// whole. Probe results and analyses are append-only; readers take the
// newest row per scope target.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/waftester/bountyscout/pkg/model"
)

// Store is the persistence contract used by the scan pipeline, the API
// and the report writers. Every call blocks until the write or read has
// completed.
type Store interface {
	UpsertProgram(ctx context.Context, p *model.Program) error
	ReplaceScope(ctx context.Context, handle string, targets []model.ScopeTarget) ([]model.ScopeTarget, error)
	URLTargets(ctx context.Context, handle string) ([]model.ScopeTarget, error)
	AddProbeResult(ctx context.Context, r *model.ProbeResult) error
	AddAnalysis(ctx context.Context, a *model.Analysis) error
	ListPrograms(ctx context.Context, q Query) ([]ProgramView, error)
	CountPrograms(ctx context.Context) (int64, error)
	SaveCredentials(ctx context.Context, c model.Credentials) error
	Credentials(ctx context.Context) (model.Credentials, error)
	Close() error
}

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// GormStore implements Store on gorm.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ Store = (*GormStore)(nil)

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	fresh  bool
	logger *slog.Logger
	debug  bool
}

// WithFresh deletes an existing database file before opening.
func WithFresh(fresh bool) Option {
	return func(c *openConfig) { c.fresh = fresh }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *openConfig) { c.logger = l }
}

// WithSQLDebug logs every SQL statement.
func WithSQLDebug(on bool) Option {
	return func(c *openConfig) { c.debug = on }
}

// Open opens (creating if needed) the database at path and migrates the
// schema. A directory found at path is removed first.
func Open(path string, opts ...Option) (*GormStore, error) {
	cfg := openConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	if path != MemoryPath {
		if err := prepareFile(path, cfg.fresh, cfg.logger); err != nil {
			return nil, err
		}
	}

	level := gormlogger.Silent
	if cfg.debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	// SQLite allows one writer; in-memory databases exist per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Program{},
		&model.ScopeTarget{},
		&model.ProbeResult{},
		&model.Analysis{},
		&model.Credentials{},
	); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &GormStore{db: db, logger: cfg.logger}, nil
}

func prepareFile(path string, fresh bool, logger *slog.Logger) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: stat %s: %w", path, err)
	}
	if info.IsDir() {
		logger.Warn("removing directory at database path", slog.String("path", path))
		return os.RemoveAll(path)
	}
	if fresh {
		logger.Info("fresh database requested, removing existing file", slog.String("path", path))
		return os.Remove(path)
	}
	return nil
}

// Close releases the database.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
