package storage

import (
	"time"

	"mtr/internal/config"
	"mtr/internal/domain"
)

// Storage persists and loads the summary of the last run (for --failed and the failures viewer).
type Storage interface {
	// Save summarizes a run, writes it and returns what was written.
	Save(results []domain.ModuleResult, duration time.Duration, workers int) (*domain.TestResultsOutput, error)
	Load() (*domain.TestResultsOutput, error)
	// SaveOutput writes the full output (e.g. after marking failures resolved).
	SaveOutput(output *domain.TestResultsOutput) error
}

// JSONStorage stores results in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}
