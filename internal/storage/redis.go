package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
	repo "github.com/jwebster45206/storylines/pkg/storage"
)

const (
	flagsKey      = "world-flags"
	sessionPrefix = "session:"
	lockPrefix    = "game-lock:"

	// SessionTTL bounds how long an idle session snapshot is kept.
	SessionTTL = 7 * 24 * time.Hour
)

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisStore keeps world flags, session snapshots and per-character turn locks in Redis.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

var (
	_ repo.FlagStore    = (*RedisStore)(nil)
	_ repo.SessionStore = (*RedisStore)(nil)
)

// NewRedisStore connects using a redis:// URL.
func NewRedisStore(redisURL string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts), logger: logger}, nil
}

// Health and lifecycle methods

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection retries Ping until Redis answers (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(delay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", attempts)
}

// World flag operations. Flags live in one hash, one field per flag name.

func (r *RedisStore) ListFlags(ctx context.Context) ([]scenario.WorldFlag, error) {
	fields, err := r.client.HGetAll(ctx, flagsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list world flags: %w", err)
	}

	out := make([]scenario.WorldFlag, 0, len(fields))
	for name, data := range fields {
		var f scenario.WorldFlag
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			r.logger.Warn("Skipping unreadable world flag", "flag", name, "error", err)
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetFlag overwrites the value. The original creation time is kept when the flag exists.
func (r *RedisStore) SetFlag(ctx context.Context, name string, value any) (*scenario.WorldFlag, error) {
	if name == "" {
		return nil, fmt.Errorf("flag name cannot be empty")
	}

	now := time.Now().UTC()
	f := scenario.WorldFlag{Name: name, CreatedAt: now}
	existing, err := r.client.HGet(ctx, flagsKey, name).Result()
	switch {
	case err == nil:
		var prev scenario.WorldFlag
		if json.Unmarshal([]byte(existing), &prev) == nil {
			f = prev
		}
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("read world flag %s: %w", name, err)
	}
	f.Value = value
	f.UpdatedAt = now

	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode world flag %s: %w", name, err)
	}
	if err := r.client.HSet(ctx, flagsKey, name, data).Err(); err != nil {
		r.logger.Error("Failed to set world flag", "flag", name, "error", err)
		return nil, fmt.Errorf("set world flag %s: %w", name, err)
	}
	return &f, nil
}

// Session operations

func sessionKey(characterID int64) string {
	return sessionPrefix + strconv.FormatInt(characterID, 10)
}

func (r *RedisStore) SaveSession(ctx context.Context, s state.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.CharacterID), data, SessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save session", "character_id", s.CharacterID, "error", err)
		return fmt.Errorf("save session for character %d: %w", s.CharacterID, err)
	}
	return nil
}

func (r *RedisStore) LoadSession(ctx context.Context, characterID int64) (*state.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(characterID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session for character %d: %w", characterID, repo.ErrNotFound)
		}
		return nil, fmt.Errorf("load session for character %d: %w", characterID, err)
	}
	var s state.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session for character %d: %w", characterID, err)
	}
	return &s, nil
}

// DeleteSession removes a character's snapshot; a missing key is not an error.
func (r *RedisStore) DeleteSession(ctx context.Context, characterID int64) error {
	if err := r.client.Del(ctx, sessionKey(characterID)).Err(); err != nil {
		return fmt.Errorf("delete session for character %d: %w", characterID, err)
	}
	return nil
}

// Turn locks

func lockKey(characterID int64) string {
	return lockPrefix + strconv.FormatInt(characterID, 10)
}

// TryLock takes the turn lock for a character. It reports false when another owner holds it.
// The returned token must be passed to Unlock.
func (r *RedisStore) TryLock(ctx context.Context, characterID int64, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKey(characterID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire game lock for character %d: %w", characterID, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases the lock if token still owns it. An expired or stolen lock is left alone.
func (r *RedisStore) Unlock(ctx context.Context, characterID int64, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{lockKey(characterID)}, token).Err(); err != nil {
		r.logger.Error("Failed to release game lock", "character_id", characterID, "error", err)
		return fmt.Errorf("release game lock for character %d: %w", characterID, err)
	}
	return nil
}
