// Package history keeps a record of deploy runs and their per-class coverage in a SQL database.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"apexci/internal/coverage"
	"apexci/internal/domain"
	"apexci/internal/errors"
)

// DSN schemes understood by Open. A DSN without a scheme is a SQLite file path.
const (
	SchemeMySQL  = "mysql://"
	SchemeSQLite = "sqlite://"
)

// Run is one recorded deploy.
type Run struct {
	ID           uint      `gorm:"primaryKey"`
	DeployID     string    `gorm:"index;size:32"`
	TargetOrg    string    `gorm:"size:255"`
	TestClass    string    `gorm:"size:64"`
	Status       string    `gorm:"size:32"`
	Success      bool
	TestsRun     int
	Failures     int
	TotalTimeMs  float64
	Lines        int
	LinesCovered int
	Percentage   float64
	CreatedAt    time.Time `gorm:"index"`
	Classes      []ClassCoverage
}

// ClassCoverage is the coverage of one class or trigger in a run.
type ClassCoverage struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        uint   `gorm:"index"`
	Name         string `gorm:"size:255"`
	Type         string `gorm:"size:32"`
	Lines        int
	LinesCovered int
	Percentage   float64
}

// Store reads and writes the run history.
type Store struct {
	db  *gorm.DB
	log *logrus.Entry
}

// Open connects to the database named by dsn and migrates the schema.
func Open(dsn string, log *logrus.Entry) (*Store, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Errorf("failed to open history database: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// a single connection keeps :memory: databases alive and avoids SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.WithStackTrace(err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Run{}, &ClassCoverage{}); err != nil {
		return nil, errors.Errorf("failed to migrate history database: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dsn, SchemeMySQL):
		cfg, err := mysqldriver.ParseDSN(strings.TrimPrefix(dsn, SchemeMySQL))
		if err != nil {
			return nil, errors.Errorf("invalid MySQL DSN: %w", err)
		}
		cfg.ParseTime = true
		return mysql.Open(cfg.FormatDSN()), nil
	case strings.HasPrefix(dsn, SchemeSQLite):
		return sqlite.Open(strings.TrimPrefix(dsn, SchemeSQLite)), nil
	case dsn == "":
		return nil, errors.New("history database DSN is empty")
	}

	return sqlite.Open(dsn), nil
}

// Record stores a finished deploy with its coverage rows.
func (s *Store) Record(ctx context.Context, targetOrg, testClass string, result *domain.DeployResult) (*Run, error) {
	run := &Run{
		DeployID:  result.ID,
		TargetOrg: targetOrg,
		TestClass: testClass,
		Status:    result.Status,
		Success:   result.Success,
	}

	if t := result.Details.RunTestResult; t != nil {
		summary := coverage.Summarize(t.CodeCoverage)
		run.TestsRun = t.NumTestsRun
		run.Failures = t.NumFailures
		run.TotalTimeMs = t.TotalTime
		run.Lines = summary.Locations
		run.LinesCovered = summary.Covered
		run.Percentage = summary.Percentage

		for _, c := range t.CodeCoverage {
			run.Classes = append(run.Classes, ClassCoverage{
				Name:         c.QualifiedName(),
				Type:         c.Type,
				Lines:        c.NumLocations,
				LinesCovered: coverage.Covered(c),
				Percentage:   coverage.Percentage(c),
			})
		}
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, errors.Errorf("failed to record run: %w", err)
	}
	s.log.Debugf("Recorded run %d for deploy %s", run.ID, run.DeployID)

	return run, nil
}

// Recent returns the latest runs, newest first, with their classes.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := s.db.WithContext(ctx).
		Preload("Classes").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, errors.Errorf("failed to read history: %w", err)
	}

	return runs, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WithStackTrace(err)
	}

	return sqlDB.Close()
}
