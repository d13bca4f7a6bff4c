// synthctl/pkg/runner/runner.go

package runner

import (
	"context"
	"sync"
	"time"

	"mkowalik/synthctl/pkg/api"
	"mkowalik/synthctl/pkg/logging"
	"mkowalik/synthctl/pkg/store"
)

// API is the slice of the synthetics client the runner needs.
type API interface {
	CreateTest(ctx context.Context, test *api.Test) (*api.Test, error)
	SetTestStatus(ctx context.Context, id, status string) error
	DeleteTest(ctx context.Context, id string) error
	TestHealth(ctx context.Context, ids []string, start, end time.Time) ([]*api.TestHealth, error)
}

// RunStatus is a point-in-time snapshot of a one-shot run, broadcast by
// the dashboard.
type RunStatus struct {
	Phase    string    `json:"phase"`
	TestID   string    `json:"test_id,omitempty"`
	TestName string    `json:"test_name,omitempty"`
	Health   string    `json:"health,omitempty"`
	Time     time.Time `json:"time"`
}

// Runner executes one-shot synthetic tests: create, activate, wait for
// a health observation, then clean up.
type Runner struct {
	api     API
	results store.Store // optional

	WaitFactor float64
	Retries    int
	Delete     bool // pause instead of deleting when false

	status      RunStatus
	statusMutex sync.Mutex

	// injectable for tests
	sleep func(time.Duration)
	now   func() time.Time
}

func NewRunner(apiClient API, results store.Store) *Runner {
	return &Runner{
		api:        apiClient,
		results:    results,
		WaitFactor: 1.0,
		Retries:    3,
		Delete:     true,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Status returns the current run status snapshot.
func (r *Runner) Status() RunStatus {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	return r.status
}

func (r *Runner) setStatus(phase string, test *api.Test, health string) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	r.status = RunStatus{Phase: phase, Time: r.now()}
	if test != nil {
		r.status.TestID = test.ID
		r.status.TestName = test.Name
	}
	r.status.Health = health
}

// OneShot creates the test, waits for it to accumulate results, fetches
// its health and finally deletes (or pauses) it. The returned health is
// nil when no valid health data arrived within the retry budget.
func (r *Runner) OneShot(ctx context.Context, test *api.Test) (*api.TestHealth, error) {
	logging.Logger.Debug().Str("test", test.Name).Msg("Creating test")
	r.setStatus("creating", test, "")

	created, err := r.api.CreateTest(ctx, test)
	if err != nil {
		logging.Logger.Error().Err(err).Str("test", test.Name).Msg("Failed to create test")
		return nil, err
	}

	if created.Status != api.TestStatusActive {
		logging.Logger.Info().Str("test", created.Name).Msg("Activating test")
		if err := r.api.SetTestStatus(ctx, created.ID, api.TestStatusActive); err != nil {
			logging.Logger.Error().Err(err).Str("test", created.Name).Str("id", created.ID).Msg("Failed to activate test")
			r.deleteTest(ctx, created)
			return nil, err
		}
	}

	health := r.waitForHealth(ctx, created)

	if r.Delete {
		r.deleteTest(ctx, created)
	} else {
		logging.Logger.Info().Str("id", created.ID).Msg("Pausing test")
		if err := r.api.SetTestStatus(ctx, created.ID, api.TestStatusPaused); err != nil {
			logging.Logger.Error().Err(err).Str("id", created.ID).Msg("Failed to pause test")
		}
	}

	if health != nil {
		r.setStatus("done", created, health.OverallHealth.Health)
	} else {
		r.setStatus("failed", created, "")
	}
	r.saveResult(created, health)
	return health, nil
}

// waitForHealth polls the health endpoint until a fresh observation
// arrives or the retry budget runs out.
func (r *Runner) waitForHealth(ctx context.Context, test *api.Test) *api.TestHealth {
	maxPeriod := test.MaxPeriod()
	window := time.Duration(float64(maxPeriod) * r.WaitFactor)

	waitTime := window - r.now().Sub(test.CreatedDate)
	if waitTime < 0 {
		waitTime = 0
	}
	start := r.now()

	for retries := r.Retries; retries > 0; retries-- {
		if waitTime > 0 {
			logging.Logger.Info().Dur("wait", waitTime).Msg("Waiting for test to accumulate results")
			r.setStatus("waiting", test, "")
			r.sleep(waitTime)
		}
		waitTime = maxPeriod

		now := r.now()
		health, err := r.api.TestHealth(ctx, []string{test.ID}, now.Add(-window), now)
		if err != nil {
			logging.Logger.Error().Err(err).Msg("Failed to retrieve test health, retrying")
			continue
		}
		if len(health) < 1 {
			logging.Logger.Debug().Dur("elapsed", now.Sub(start)).Msg("Health not available yet")
			continue
		}
		observed := health[0].OverallHealth.Time
		if now.Sub(observed) > window {
			logging.Logger.Info().Time("timestamp", observed).Dur("elapsed", now.Sub(start)).Msg("Stale health data")
			continue
		}
		logging.Logger.Debug().
			Str("id", test.ID).
			Str("health", health[0].OverallHealth.Health).
			Time("timestamp", observed).
			Msg("Test health observed")
		return health[0]
	}

	logging.Logger.Error().Str("id", test.ID).Msg("Failed to get valid health data for test")
	return nil
}

func (r *Runner) deleteTest(ctx context.Context, test *api.Test) {
	logging.Logger.Debug().Str("test", test.Name).Str("id", test.ID).Msg("Deleting test")
	if err := r.api.DeleteTest(ctx, test.ID); err != nil {
		logging.Logger.Error().Err(err).Str("test", test.Name).Str("id", test.ID).Msg("Failed to delete test")
		return
	}
	logging.Logger.Info().Str("test", test.Name).Str("id", test.ID).Msg("Deleted test")
}

func (r *Runner) saveResult(test *api.Test, health *api.TestHealth) {
	if r.results == nil {
		return
	}
	result := &store.RunResult{
		TestID:     test.ID,
		TestName:   test.Name,
		ObservedAt: r.now(),
		Deleted:    r.Delete,
	}
	if health != nil {
		result.Health = health.OverallHealth.Health
		result.ObservedAt = health.OverallHealth.Time
	}
	if err := r.results.SaveResult(result); err != nil {
		logging.LogError(logging.Logger, err)
	}
}
