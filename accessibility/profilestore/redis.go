package profilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vaanihq/voicecore/accessibility"
	"github.com/vaanihq/voicecore/wire"
)

// RedisConfig configures the Redis-backed Store.
type RedisConfig struct {
	// Client is the Redis client instance.
	Client *redis.Client

	// KeyPrefix for all profile keys. Default: "voice:a11y:".
	KeyPrefix string
}

// Redis persists profiles in Redis so every process in a deployment sees
// the same configuration.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

var _ Store = (*Redis)(nil)

// NewRedis creates a Redis-backed store using the supplied client.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "voice:a11y:"
	}
	return &Redis{client: cfg.Client, keyPrefix: prefix}, nil
}

func (r *Redis) key(sessionID string) string { return r.keyPrefix + sessionID }

func (r *Redis) Put(ctx context.Context, profile *accessibility.Profile, ttl time.Duration) error {
	data, err := wire.Encode(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := r.client.Set(ctx, r.key(profile.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("store profile for %s: %w", profile.SessionID, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, sessionID string) (*accessibility.Profile, error) {
	raw, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load profile for %s: %w", sessionID, err)
	}
	var profile accessibility.Profile
	if err := wire.Decode(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode profile for %s: %w", sessionID, err)
	}
	return &profile, nil
}

func (r *Redis) Delete(ctx context.Context, sessionID string) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete profile for %s: %w", sessionID, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return nil
}
