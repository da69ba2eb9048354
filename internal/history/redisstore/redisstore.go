// Package redisstore keeps calculation history in a capped Redis list.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"optionpricer/internal/history"
)

const (
	defaultKey    = "optionpricer:calculations"
	defaultMaxLen = 1000
)

type Store struct {
	client redis.UniversalClient
	key    string
	maxLen int64
}

var _ history.Store = (*Store)(nil)

func New(client redis.UniversalClient) *Store {
	return &Store{
		client: client,
		key:    defaultKey,
		maxLen: defaultMaxLen,
	}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(client), nil
}

func (s *Store) Append(ctx context.Context, r history.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, s.maxLen-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	if limit <= 0 {
		return []history.Record{}, nil
	}
	values, err := s.client.LRange(ctx, s.key, 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []history.Record{}, nil
		}
		return nil, fmt.Errorf("failed to list records from redis: %w", err)
	}
	out := make([]history.Record, 0, len(values))
	for _, val := range values {
		var r history.Record
		if err := json.Unmarshal([]byte(val), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) Close() error { return s.client.Close() }
