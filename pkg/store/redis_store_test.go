// synthctl/pkg/store/redis_store_test.go

package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := NewRedisStore(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetResult(t *testing.T) {
	s := setupMiniredis(t)

	observed := time.Date(2024, 5, 1, 12, 4, 0, 0, time.UTC)
	require.NoError(t, s.SaveResult(&RunResult{
		TestID:     "1001",
		TestName:   "my-test",
		Health:     "healthy",
		ObservedAt: observed,
		Deleted:    true,
	}))

	got, err := s.GetResult("1001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "my-test", got.TestName)
	assert.Equal(t, "healthy", got.Health)
	assert.True(t, got.ObservedAt.Equal(observed))
	assert.True(t, got.Deleted)
}

func TestGetMissingResult(t *testing.T) {
	s := setupMiniredis(t)

	got, err := s.GetResult("no-such-test")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveOverwritesResult(t *testing.T) {
	s := setupMiniredis(t)

	require.NoError(t, s.SaveResult(&RunResult{TestID: "1001", Health: "warning"}))
	require.NoError(t, s.SaveResult(&RunResult{TestID: "1001", Health: "healthy"}))

	got, err := s.GetResult("1001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "healthy", got.Health)
}

func TestListResults(t *testing.T) {
	s := setupMiniredis(t)

	require.NoError(t, s.SaveResult(&RunResult{TestID: "1001", Health: "healthy"}))
	require.NoError(t, s.SaveResult(&RunResult{TestID: "1002", Health: "critical"}))

	results, err := s.ListResults()
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := make(map[string]string, len(results))
	for _, r := range results {
		byID[r.TestID] = r.Health
	}
	assert.Equal(t, "healthy", byID["1001"])
	assert.Equal(t, "critical", byID["1002"])
}

func TestListResultsEmpty(t *testing.T) {
	s := setupMiniredis(t)

	results, err := s.ListResults()
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestConnectFailure(t *testing.T) {
	_, err := NewRedisStore("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
