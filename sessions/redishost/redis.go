package redishost

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/vaanihq/voicecore/sessions"
)

// Config for the Redis-backed Host. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: SESSIONS_KEY_PREFIX
	KeyPrefix string `env:"SESSIONS_KEY_PREFIX,default=voice:sessions:"`

	// Client, when set, is used instead of dialing RedisAddr.
	Client *redis.Client
}

type Host struct {
	client    *redis.Client
	keyPrefix string
	ownClient bool
}

// New builds a Host from the config, dialing Redis unless a client was
// supplied.
func New(cfg Config) (*Host, error) {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "voice:sessions:"
	}
	if cfg.Client != nil {
		return &Host{client: cfg.Client, keyPrefix: prefix}, nil
	}
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Host{client: cl, keyPrefix: prefix, ownClient: true}, nil
}

// NewFromEnv builds a Host using envdecode to populate Config.
func NewFromEnv() (*Host, error) {
	var cfg Config
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// Close closes the Redis client if this host opened it.
func (h *Host) Close() error {
	if h.ownClient {
		return h.client.Close()
	}
	return nil
}

func (h *Host) key(sessionID string) string { return h.keyPrefix + "sess:" + sessionID }

var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'v', 1, 'd', ARGV[1])
if tonumber(ARGV[2]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

func (h *Host) Create(ctx context.Context, sessionID string, data []byte, ttl time.Duration) error {
	res, err := createScript.Run(ctx, h.client, []string{h.key(sessionID)}, data, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis create: %w", err)
	}
	if res == 0 {
		return sessions.ErrSessionExists
	}
	return nil
}

func (h *Host) Get(ctx context.Context, sessionID string) (*sessions.Record, error) {
	vals, err := h.client.HMGet(ctx, h.key(sessionID), "v", "d").Result()
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	if vals[0] == nil || vals[1] == nil {
		return nil, nil
	}
	ver, err := strconv.ParseInt(vals[0].(string), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis get: bad version field: %w", err)
	}
	return &sessions.Record{Data: []byte(vals[1].(string)), Version: ver}, nil
}

var casScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if not cur then
  return -1
end
if cur ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'v', tonumber(ARGV[1]) + 1, 'd', ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

func (h *Host) CompareAndSwap(ctx context.Context, sessionID string, expect int64, data []byte, ttl time.Duration) error {
	res, err := casScript.Run(ctx, h.client, []string{h.key(sessionID)},
		strconv.FormatInt(expect, 10), data, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis cas: %w", err)
	}
	switch res {
	case -1:
		return sessions.ErrSessionNotFound
	case 0:
		return sessions.ErrVersionConflict
	}
	return nil
}

func (h *Host) Delete(ctx context.Context, sessionID string) error {
	// Best-effort even when the caller's context is on its way out.
	c := context.WithoutCancel(ctx)
	if err := h.client.Del(c, h.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (h *Host) ListIDs(ctx context.Context) ([]string, error) {
	pattern := h.keyPrefix + "sess:*"
	strip := h.keyPrefix + "sess:"

	var ids []string
	var cursor uint64
	for {
		keys, cur, err := h.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, strip))
		}
		if cur == 0 {
			return ids, nil
		}
		cursor = cur
	}
}

// Interface compliance
var _ sessions.Host = (*Host)(nil)
