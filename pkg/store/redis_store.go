// synthctl/pkg/store/redis_store.go

package store

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"mkowalik/synthctl/pkg/logging"
)

var ctx = context.Background()

const resultKeyPrefix = "synthctl:run:"

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and returns a result store backed by
// it.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	logging.Logger.Info().Str("addr", addr).Int("db", db).Msg("Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, logging.NewError(logging.ErrorTypeStore,
			"failed to connect to Redis", err,
			map[string]interface{}{"addr": addr})
	}

	logging.Logger.Info().Msg("Successfully connected to Redis")
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) SaveResult(result *RunResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return logging.NewError(logging.ErrorTypeStore,
			"failed to marshal run result", err,
			map[string]interface{}{"test_id": result.TestID})
	}
	if err := s.client.Set(ctx, resultKeyPrefix+result.TestID, data, 0).Err(); err != nil {
		return logging.NewError(logging.ErrorTypeStore,
			"failed to save run result", err,
			map[string]interface{}{"test_id": result.TestID})
	}
	logging.Logger.Debug().Str("test_id", result.TestID).Str("health", result.Health).Msg("Saved run result")
	return nil
}

func (s *RedisStore) GetResult(testID string) (*RunResult, error) {
	data, err := s.client.Get(ctx, resultKeyPrefix+testID).Result()
	if err == redis.Nil {
		logging.Logger.Debug().Str("test_id", testID).Msg("Run result not found")
		return nil, nil
	} else if err != nil {
		return nil, logging.NewError(logging.ErrorTypeStore,
			"failed to get run result", err,
			map[string]interface{}{"test_id": testID})
	}

	var result RunResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, logging.NewError(logging.ErrorTypeStore,
			"failed to unmarshal run result", err,
			map[string]interface{}{"test_id": testID})
	}
	return &result, nil
}

func (s *RedisStore) ListResults() ([]*RunResult, error) {
	var results []*RunResult
	iter := s.client.Scan(ctx, 0, resultKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return nil, logging.NewError(logging.ErrorTypeStore,
				"failed to read run result during scan", err,
				map[string]interface{}{"key": iter.Val()})
		}
		var result RunResult
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			return nil, logging.NewError(logging.ErrorTypeStore,
				"failed to unmarshal run result during scan", err,
				map[string]interface{}{"key": iter.Val()})
		}
		results = append(results, &result)
	}
	if err := iter.Err(); err != nil {
		return nil, logging.NewError(logging.ErrorTypeStore,
			"failed to scan run results", err, nil)
	}
	return results, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
