package controls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

// Well-known switch keys.
const (
	// KeySwapsPaused halts swap execution when enabled. Quotes and reads
	// keep working.
	KeySwapsPaused = "swaps.paused"
)

const (
	indexKey    = "controls:index"
	valuePrefix = "controls:"
)

var ErrNotFound = errors.New("switch not found")

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// Switch is a persisted operational toggle.
type Switch struct {
	Key       string    `json:"key"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps operational switches in redis so every process sharing the
// instance observes the same state.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("invalid switch key")
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, key string, enabled bool) (*Switch, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	sw := &Switch{Key: key, Enabled: enabled, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(sw)
	if err != nil {
		return nil, fmt.Errorf("marshal switch: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, switchKey(key), b, 0)
	pipe.SAdd(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("upsert switch: %w", err)
	}

	return sw, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Switch, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, switchKey(key)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get switch: %w", err)
	}

	var sw Switch
	if err := json.Unmarshal([]byte(val), &sw); err != nil {
		return nil, fmt.Errorf("unmarshal switch: %w", err)
	}
	return &sw, nil
}

// Enabled reports whether a switch is on. An absent switch is off.
func (s *Store) Enabled(ctx context.Context, key string) (bool, error) {
	sw, err := s.Get(ctx, key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sw.Enabled, nil
}

// SwapsPaused reports whether swap execution is currently halted.
func (s *Store) SwapsPaused(ctx context.Context) (bool, error) {
	return s.Enabled(ctx, KeySwapsPaused)
}

func (s *Store) List(ctx context.Context) ([]*Switch, error) {
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list switch index: %w", err)
	}
	if len(keys) == 0 {
		return []*Switch{}, nil
	}

	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := ValidateKey(k); err != nil {
			continue
		}
		redisKeys = append(redisKeys, switchKey(k))
	}
	if len(redisKeys) == 0 {
		return []*Switch{}, nil
	}

	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget switches: %w", err)
	}

	out := make([]*Switch, 0, len(vals))
	for _, v := range vals {
		if v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var sw Switch
		if err := json.Unmarshal([]byte(raw), &sw); err != nil {
			continue
		}
		out = append(out, &sw)
	}

	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, switchKey(key))
	pipe.SRem(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete switch: %w", err)
	}

	return nil
}

func switchKey(key string) string {
	return valuePrefix + key
}
