// Package redis caches rendered plot payloads keyed by the query-field
// hash, so re-plotting an identical query skips the fetch-and-assemble
// pipeline entirely.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mexer-app/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetPlot caches one rendered payload under the query hash.
func (c *Client) SetPlot(ctx context.Context, queryHash string, payload interface{}, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal plot payload: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("plot:%s", queryHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set plot cache: %w", err)
	}

	logger.Debug("Plot cached", zap.String("query_hash", queryHash), zap.Duration("ttl", ttl))
	return nil
}

// GetPlot loads a cached payload into out, reporting whether it was
// present.
func (c *Client) GetPlot(ctx context.Context, queryHash string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("plot:%s", queryHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get plot cache: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal plot payload: %w", err)
	}

	logger.Debug("Plot cache hit", zap.String("query_hash", queryHash))
	return true, nil
}

// InvalidatePlots drops every cached payload, for use after a reference
// data refresh.
func (c *Client) InvalidatePlots(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "plot:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Plot cache invalidated")
	return nil
}
