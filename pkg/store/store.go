// synthctl/pkg/store/store.go

package store

import "time"

// RunResult is the outcome of one one-shot test run.
type RunResult struct {
	TestID     string    `json:"test_id"`
	TestName   string    `json:"test_name"`
	Health     string    `json:"health"`
	ObservedAt time.Time `json:"observed_at"`
	Deleted    bool      `json:"deleted"`
}

// Store persists one-shot run results.
type Store interface {
	SaveResult(result *RunResult) error
	GetResult(testID string) (*RunResult, error)
	ListResults() ([]*RunResult, error)
	Close() error
}
