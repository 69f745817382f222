package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"apexci/internal/domain"
)

// NewRecord wraps a result with the run metadata.
func NewRecord(result *domain.DeployResult, targetOrg, testClass string, duration time.Duration, now time.Time) *Record {
	return &Record{
		Meta: Meta{
			TargetOrg:       targetOrg,
			TestClass:       testClass,
			Duration:        duration.String(),
			DurationSeconds: duration.Seconds(),
			Timestamp:       now.Format(time.RFC3339),
		},
		Result: result,
	}
}

// Save writes the record to the configured JSON output file.
func (s *JSONStorage) Save(record *Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	path := s.cfg.GetOutputPath()
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, data, 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// Load reads the last deploy from the configured JSON output file.
func (s *JSONStorage) Load() (*Record, error) {
	path := s.cfg.GetOutputPath()
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	if record.Result == nil {
		return nil, fmt.Errorf("parse result: %s holds no deploy result", path)
	}
	return &record, nil
}
