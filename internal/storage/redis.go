package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix     = "omamori:"
	redisProfilePrefix = redisKeyPrefix + "profile:"
	redisFamilyPrefix  = redisKeyPrefix + "family:"
	redisScanCount     = 500
)

// RedisStore keeps records as JSON strings in Redis so several bot
// instances can share state.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to the Redis server described by rawURL
// (redis://[user:pass@]host:port/db) and verifies the connection.
func NewRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	s := NewRedisStoreFromClient(redis.NewClient(opts))
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// GetProfile implements ProfileRepository.
func (s *RedisStore) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var p UserProfile
	if err := s.getJSON(ctx, redisProfilePrefix+userID, &p); err != nil {
		return nil, fmt.Errorf("profile %s: %w", userID, err)
	}
	return &p, nil
}

// SaveProfile implements ProfileRepository.
func (s *RedisStore) SaveProfile(ctx context.Context, profile *UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return domerrors.NewValidationError("user_id", "required")
	}
	return s.setJSON(ctx, redisProfilePrefix+profile.UserID, profile)
}

// GetFamily implements FamilyRepository.
func (s *RedisStore) GetFamily(ctx context.Context, groupID string) (*FamilyGroup, error) {
	var g FamilyGroup
	if err := s.getJSON(ctx, redisFamilyPrefix+groupID, &g); err != nil {
		return nil, fmt.Errorf("family %s: %w", groupID, err)
	}
	return &g, nil
}

// SaveFamily implements FamilyRepository.
func (s *RedisStore) SaveFamily(ctx context.Context, family *FamilyGroup) error {
	if family == nil || family.GroupID == "" {
		return domerrors.NewValidationError("group_id", "required")
	}
	return s.setJSON(ctx, redisFamilyPrefix+family.GroupID, family)
}

// Stats implements Store by scanning the key space.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	profiles, err := s.count(ctx, redisProfilePrefix+"*")
	if err != nil {
		return Stats{}, err
	}
	families, err := s.count(ctx, redisFamilyPrefix+"*")
	if err != nil {
		return Stats{}, err
	}
	return Stats{Profiles: profiles, Families: families}, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dst any) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) count(ctx context.Context, pattern string) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, pattern, redisScanCount).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	return n, nil
}
