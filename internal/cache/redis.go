package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vicent00/swap-facade/internal/models"
)

const (
	recentSwapsKey = "swaps:recent"
	recentSwapsMax = 500

	// ChannelAllSwaps carries every published event; per-pair channels use
	// the pairChannel prefix.
	ChannelAllSwaps = "swaps:all"
	pairChannel     = "swaps:pair:"
)

// RedisCache implements storage.EventCache on top of a Redis client.
type RedisCache struct {
	client redis.UniversalClient
	logger *logrus.Logger
}

// NewRedisCacheFromClient wraps an existing Redis client.
func NewRedisCacheFromClient(client redis.UniversalClient, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// NewRedisCache dials addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewRedisCacheFromClient(client, logger), nil
}

func (r *RedisCache) AddRecentSwap(ctx context.Context, event *models.SwapEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal swap event: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, recentSwapsKey, data)
	pipe.LTrim(ctx, recentSwapsKey, 0, recentSwapsMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent swap: %w", err)
	}
	return nil
}

func (r *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	if limit <= 0 || limit > recentSwapsMax {
		limit = recentSwapsMax
	}

	raw, err := r.client.LRange(ctx, recentSwapsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	out := make([]*models.SwapEvent, 0, len(raw))
	for _, item := range raw {
		var ev models.SwapEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			r.logger.WithError(err).Warn("skipping undecodable swap event")
			continue
		}
		out = append(out, &ev)
	}
	return out, nil
}

func (r *RedisCache) PublishSwap(ctx context.Context, event *models.SwapEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal swap event: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Publish(ctx, ChannelAllSwaps, data)
	pipe.Publish(ctx, pairChannel+event.Pair, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish swap: %w", err)
	}
	return nil
}

func (r *RedisCache) SubscribeSwaps(ctx context.Context) (<-chan *models.SwapEvent, error) {
	pubsub := r.client.Subscribe(ctx, ChannelAllSwaps)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe swaps: %w", err)
	}

	out := make(chan *models.SwapEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.SwapEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.logger.WithError(err).Warn("skipping undecodable swap event")
					continue
				}
				select {
				case out <- &ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
