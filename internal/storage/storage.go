package storage

import (
	"github.com/spf13/afero"

	"apexci/internal/config"
	"apexci/internal/domain"
)

// Storage persists and loads the last deploy result (e.g. for the failures viewer and the
// report command).
type Storage interface {
	Save(record *Record) error
	Load() (*Record, error)
}

// Record is a stored deploy with a few facts about the run that produced it.
type Record struct {
	Meta   Meta                 `json:"meta"`
	Result *domain.DeployResult `json:"result"`
}

// Meta describes the run that produced a stored result.
type Meta struct {
	TargetOrg       string  `json:"targetOrg,omitempty"`
	TestClass       string  `json:"testClass,omitempty"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"durationSeconds"`
	Timestamp       string  `json:"timestamp"`
}

// JSONStorage stores the result in a JSON file under the configured state directory.
type JSONStorage struct {
	cfg *config.Config
	fs  afero.Fs
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config, fs afero.Fs) *JSONStorage {
	return &JSONStorage{cfg: cfg, fs: fs}
}
