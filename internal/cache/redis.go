package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matchchat/internal/config"
)

const (
	likeCountTTL = time.Hour
	matchSetTTL  = 24 * time.Hour
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForLikeCount generates Redis key for a user's pending "liked you" count.
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likedyou:count:%d", userID)
}

// SetLikeCount stores a freshly computed count. Always refreshes TTL.
func (c *RedisCache) SetLikeCount(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForLikeCount(userID), count, likeCountTTL).Err()
}

// GetLikeCount returns (count, true) on a hit and (0, false) on a miss.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64) (int64, bool, error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // treat garbage as a miss
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, likeCountTTL).Err()
	return n, true, nil
}

// IncrLikeCount bumps a cached count. A missing key is left missing so the
// next read recomputes it from the DB instead of starting from 1.
func (c *RedisCache) IncrLikeCount(ctx context.Context, userID uint64) error {
	return c.adjustLikeCount(ctx, userID, 1)
}

// DecrLikeCount lowers a cached count, never below zero.
func (c *RedisCache) DecrLikeCount(ctx context.Context, userID uint64) error {
	return c.adjustLikeCount(ctx, userID, -1)
}

var adjustScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then return -1 end
local v = redis.call("INCRBY", KEYS[1], ARGV[1])
if v < 0 then redis.call("SET", KEYS[1], 0) v = 0 end
redis.call("EXPIRE", KEYS[1], ARGV[2])
return v
`)

func (c *RedisCache) adjustLikeCount(ctx context.Context, userID uint64, delta int) error {
	key := c.KeyForLikeCount(userID)
	return adjustScript.Run(ctx, c.Client, []string{key}, delta, int(likeCountTTL.Seconds())).Err()
}

// KeyForMatches is the set of user ids known to be matched with userID.
func (c *RedisCache) KeyForMatches(userID uint64) string {
	return fmt.Sprintf("matches:%d", userID)
}

// RememberMatch records a↔b in both users' match sets. Matches are never
// removed, so the sets only ever hold true positives.
func (c *RedisCache) RememberMatch(ctx context.Context, a, b uint64) error {
	pipe := c.Client.TxPipeline()
	pipe.SAdd(ctx, c.KeyForMatches(a), b)
	pipe.Expire(ctx, c.KeyForMatches(a), matchSetTTL)
	pipe.SAdd(ctx, c.KeyForMatches(b), a)
	pipe.Expire(ctx, c.KeyForMatches(b), matchSetTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// IsMatchCached reports whether b is in a's cached match set. A false answer
// only means "not cached".
func (c *RedisCache) IsMatchCached(ctx context.Context, a, b uint64) (bool, error) {
	return c.Client.SIsMember(ctx, c.KeyForMatches(a), b).Result()
}

func (c *RedisCache) keyForSession(tokenID string) string {
	return "session:" + tokenID
}

func (c *RedisCache) keyForUserSessions(userID uint64) string {
	return fmt.Sprintf("sessions:user:%d", userID)
}

// SaveSession registers an issued token id for userID until ttl elapses.
func (c *RedisCache) SaveSession(ctx context.Context, userID uint64, tokenID string, ttl time.Duration) error {
	pipe := c.Client.TxPipeline()
	pipe.Set(ctx, c.keyForSession(tokenID), userID, ttl)
	pipe.SAdd(ctx, c.keyForUserSessions(userID), tokenID)
	pipe.Expire(ctx, c.keyForUserSessions(userID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// SessionUser resolves a token id to its user. ok is false for unknown or
// revoked tokens.
func (c *RedisCache) SessionUser(ctx context.Context, tokenID string) (uint64, bool, error) {
	val, err := c.Client.Get(ctx, c.keyForSession(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// DeleteSession revokes one token.
func (c *RedisCache) DeleteSession(ctx context.Context, userID uint64, tokenID string) error {
	pipe := c.Client.TxPipeline()
	pipe.Del(ctx, c.keyForSession(tokenID))
	pipe.SRem(ctx, c.keyForUserSessions(userID), tokenID)
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteAllSessions revokes every token of userID.
func (c *RedisCache) DeleteAllSessions(ctx context.Context, userID uint64) error {
	setKey := c.keyForUserSessions(userID)
	ids, err := c.Client.SMembers(ctx, setKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, c.keyForSession(id))
	}
	keys = append(keys, setKey)
	return c.Client.Del(ctx, keys...).Err()
}
