package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/nutrobot/core/logger"
)

const redisKeyPrefix = "nutrobot:session:"

// RedisStore keeps sessions in Redis with the idle timeout mapped onto
// key TTLs, so expiry needs no janitor and sessions survive restarts.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects a session store to Redis and verifies the link.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func redisKey(userID int64) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, userID)
}

// Get returns the stored session, or a fresh idle one when the key is
// missing, expired, unreadable or Redis itself is down. Degrading to idle
// keeps the contract that Get never fails: the worst case is the user
// restarting a flow, never a stuck conversation.
func (r *RedisStore) Get(ctx context.Context, userID int64) *Session {
	raw, err := r.rdb.Get(ctx, redisKey(userID)).Bytes()
	if err == redis.Nil {
		return NewIdle()
	}
	if err != nil {
		logger.Warn(ctx, "sessions", "session.redis_get_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return NewIdle()
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		logger.Warn(ctx, "sessions", "session.redis_decode_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		_ = r.rdb.Del(ctx, redisKey(userID)).Err()
		return NewIdle()
	}
	return &s
}

// Put stores the session with a fresh TTL, sliding the idle window.
func (r *RedisStore) Put(ctx context.Context, userID int64, s *Session) error {
	cp := s.Clone()
	cp.LastActivity = time.Now().UTC()
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKey(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear drops the user's session key.
func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// InProgress reports whether the user has a live non-idle session.
func (r *RedisStore) InProgress(ctx context.Context, userID int64) bool {
	return r.Get(ctx, userID).InProgress()
}

// ActiveCount scans session keys. It walks the keyspace, which is fine
// for the admin stats command it serves.
func (r *RedisStore) ActiveCount(ctx context.Context) int {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			logger.Warn(ctx, "sessions", "session.redis_scan_failed",
				slog.String("err", err.Error()),
			)
			return count
		}
		count += len(keys)
		if next == 0 {
			return count
		}
		cursor = next
	}
}

// Close releases the Redis connection.
func (r *RedisStore) Close() error { return r.rdb.Close() }
