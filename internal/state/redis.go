// SPDX-License-Identifier: MIT

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "apiwatch:state:"

// redisStore persists target state in Redis, for deployments where several
// apiwatch instances share one view of target state.
type redisStore struct {
	client *redis.Client
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore creates a Redis-backed state store and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("state: redis connection failed: %w", err)
	}

	return &redisStore{client: client}, nil
}

func (s *redisStore) Get(ctx context.Context, target string) (TargetState, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+target).Bytes()
	if errors.Is(err, redis.Nil) {
		return TargetState{}, ErrNotFound
	}
	if err != nil {
		return TargetState{}, fmt.Errorf("state: redis get: %w", err)
	}
	var st TargetState
	if err := json.Unmarshal(val, &st); err != nil {
		return TargetState{}, fmt.Errorf("state: unmarshal: %w", err)
	}
	return st, nil
}

func (s *redisStore) Put(ctx context.Context, st TargetState) error {
	buf, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+st.Target, buf, 0).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	return nil
}

func (s *redisStore) All(ctx context.Context) ([]TargetState, error) {
	var out []TargetState
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("state: redis get %s: %w", iter.Val(), err)
		}
		var st TargetState
		if err := json.Unmarshal(val, &st); err != nil {
			return nil, fmt.Errorf("state: unmarshal %s: %w", iter.Val(), err)
		}
		out = append(out, st)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("state: redis scan: %w", err)
	}
	return out, nil
}

func (s *redisStore) Close() error { return s.client.Close() }

// Ping verifies Redis connectivity, for readiness checks.
func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
