package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/id"
)

// Compile-time interface check.
var _ bastion.Cache = (*Redis)(nil)

// Redis shares profiles between processes. Versions are Redis counters,
// so an invalidation in one process is seen by every other one on its
// next lookup.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithPrefix sets the key prefix. Defaults to "bastion".
func WithPrefix(p string) RedisOption {
	return func(r *Redis) { r.prefix = p }
}

// WithRedisTTL sets the profile expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// NewRedis creates a Redis-backed cache on an existing client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: "bastion", ttl: 5 * time.Minute}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) globalKey() string { return r.prefix + ":ver:global" }

func (r *Redis) userKey(userID id.UserID) string { return r.prefix + ":ver:" + userID.String() }

func (r *Redis) profileKey(userID id.UserID, version string) string {
	return r.prefix + ":profile:" + userID.String() + ":" + version
}

// Version implements bastion.Cache.
func (r *Redis) Version(ctx context.Context, userID id.UserID) (string, error) {
	vals, err := r.client.MGet(ctx, r.globalKey(), r.userKey(userID)).Result()
	if err != nil {
		return "", fmt.Errorf("cache: read version: %w", err)
	}
	return counter(vals[0]) + "." + counter(vals[1]), nil
}

func counter(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return "0"
}

// Get implements bastion.Cache.
func (r *Redis) Get(ctx context.Context, userID id.UserID, version string) (*bastion.Profile, bool, error) {
	raw, err := r.client.Get(ctx, r.profileKey(userID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get profile: %w", err)
	}
	var p bastion.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("cache: decode profile: %w", err)
	}
	return &p, true, nil
}

// Set implements bastion.Cache.
func (r *Redis) Set(ctx context.Context, userID id.UserID, version string, p *bastion.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache: encode profile: %w", err)
	}
	if err := r.client.Set(ctx, r.profileKey(userID, version), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set profile: %w", err)
	}
	return nil
}

// InvalidateUser implements bastion.Cache.
func (r *Redis) InvalidateUser(ctx context.Context, userID id.UserID) error {
	if err := r.client.Incr(ctx, r.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache: invalidate user: %w", err)
	}
	return nil
}

// InvalidateAll implements bastion.Cache.
func (r *Redis) InvalidateAll(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.globalKey()).Err(); err != nil {
		return fmt.Errorf("cache: invalidate all: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
