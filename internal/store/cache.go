package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sketch-party/internal/game"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache keeps recent lobby snapshots for read-only HTTP lookups.
// It is advisory: a miss or an error never changes game behaviour.
type SnapshotCache interface {
	CacheLobbySnapshot(ctx context.Context, roomCode string, snapshot game.Snapshot, ttl time.Duration) error
	GetCachedLobbySnapshot(ctx context.Context, roomCode string) (game.Snapshot, bool, error)
	Evict(ctx context.Context, roomCode string) error
	Close() error
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the redis instance at url and pings it.
func NewRedisCache(ctx context.Context, url string) (SnapshotCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &redisCache{client: client}, nil
}

func NewRedisCacheFromClient(client *redis.Client) SnapshotCache {
	return &redisCache{client: client}
}

func lobbyKey(roomCode string) string {
	return "lobby:" + game.NormalizeRoomCode(roomCode)
}

func (c *redisCache) CacheLobbySnapshot(ctx context.Context, roomCode string, snapshot game.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, lobbyKey(roomCode), data, ttl).Err()
}

func (c *redisCache) GetCachedLobbySnapshot(ctx context.Context, roomCode string) (game.Snapshot, bool, error) {
	data, err := c.client.Get(ctx, lobbyKey(roomCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Snapshot{}, false, nil
	}
	if err != nil {
		return game.Snapshot{}, false, err
	}
	var snapshot game.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return game.Snapshot{}, false, err
	}
	return snapshot, true, nil
}

func (c *redisCache) Evict(ctx context.Context, roomCode string) error {
	return c.client.Del(ctx, lobbyKey(roomCode)).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

type noopCache struct{}

func NewNoopCache() SnapshotCache {
	return noopCache{}
}

func (noopCache) CacheLobbySnapshot(context.Context, string, game.Snapshot, time.Duration) error {
	return nil
}

func (noopCache) GetCachedLobbySnapshot(context.Context, string) (game.Snapshot, bool, error) {
	return game.Snapshot{}, false, nil
}

func (noopCache) Evict(context.Context, string) error {
	return nil
}

func (noopCache) Close() error {
	return nil
}
