package integrations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status is the connection state of one platform.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusPending      Status = "pending"
	StatusConnected    Status = "connected"
)

// Connection is the stored state of one platform. The zero value of a
// platform that was never touched is disconnected.
type Connection struct {
	Platform  string    `json:"platform"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	// State is the anti-forgery token of a pending authorization.
	State string `json:"-"`
}

// Store persists connections.
type Store interface {
	// Get returns the connection for platform, or a disconnected one when
	// nothing is stored.
	Get(ctx context.Context, platform string) (Connection, error)
	Put(ctx context.Context, c Connection) error
	Delete(ctx context.Context, platform string) error
}

func disconnected(platform string) Connection {
	return Connection{Platform: platform, Status: StatusDisconnected}
}

// MemoryStore keeps connections in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	connections map[string]Connection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{connections: make(map[string]Connection)}
}

func (s *MemoryStore) Get(_ context.Context, platform string) (Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.connections[platform]; ok {
		return c, nil
	}
	return disconnected(platform), nil
}

func (s *MemoryStore) Put(_ context.Context, c Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[c.Platform] = c
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, platform)
	return nil
}

// RedisStore keeps one hash per platform so state survives restarts and is
// shared between replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "adintelli:integration:"}
}

func (s *RedisStore) key(platform string) string {
	return s.prefix + platform
}

func (s *RedisStore) Get(ctx context.Context, platform string) (Connection, error) {
	fields, err := s.client.HGetAll(ctx, s.key(platform)).Result()
	if err != nil {
		return Connection{}, fmt.Errorf("failed to load integration %s: %w", platform, err)
	}
	if len(fields) == 0 {
		return disconnected(platform), nil
	}

	c := Connection{
		Platform: platform,
		Status:   Status(fields["status"]),
		State:    fields["state"],
	}
	if ts := fields["updated_at"]; ts != "" {
		c.UpdatedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Connection{}, fmt.Errorf("failed to parse integration %s timestamp: %w", platform, err)
		}
	}
	return c, nil
}

func (s *RedisStore) Put(ctx context.Context, c Connection) error {
	err := s.client.HSet(ctx, s.key(c.Platform), map[string]interface{}{
		"status":     string(c.Status),
		"state":      c.State,
		"updated_at": c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to save integration %s: %w", c.Platform, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, platform string) error {
	if err := s.client.Del(ctx, s.key(platform)).Err(); err != nil {
		return fmt.Errorf("failed to delete integration %s: %w", platform, err)
	}
	return nil
}
