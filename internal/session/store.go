// Package session persists per-caller override state between runs: forced
// entity rules, ignored values and the last selected mode. The engine never
// reads this store; handlers resolve a session into plain arguments before
// invoking a run. Detected entities and document text are never stored here.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/anoncore/anoncore/internal/config"
	"github.com/anoncore/anoncore/internal/engine"
	"github.com/anoncore/anoncore/internal/logger"
)

// ErrNotFound is returned when a session ID has no stored state.
var ErrNotFound = errors.New("session not found")

// State is the persisted override state of one session.
type State struct {
	Mode           engine.Mode     `json:"mode"`
	ForcedEntities []engine.Entity `json:"forcedEntities"`
	IgnoredValues  []string        `json:"ignoredValues"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Store persists session state.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Put(ctx context.Context, id string, state *State) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewStore returns a Redis-backed store when a Redis URL is configured and an
// in-process store otherwise.
func NewStore(cfg config.SessionConfig, log *logger.Logger) (Store, error) {
	if cfg.RedisURL == "" {
		log.Info("Session store initialized in memory", zap.Duration("ttl", cfg.TTL))
		return newMemoryStore(cfg.TTL), nil
	}
	return newRedisStore(cfg, log)
}

// redisStore keeps session state in Redis with a TTL per key.
type redisStore struct {
	client *redis.Client
	config config.SessionConfig
	logger *logger.Logger
}

func newRedisStore(cfg config.SessionConfig, log *logger.Logger) (*redisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Session store initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("ttl", cfg.TTL),
	)

	return &redisStore{client: client, config: cfg, logger: log}, nil
}

func (s *redisStore) key(id string) string {
	return s.config.KeyPrefix + id
}

func (s *redisStore) Get(ctx context.Context, id string) (*State, error) {
	data, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		// Corrupted entry; drop it rather than serving garbage.
		s.client.Del(ctx, s.key(id))
		return nil, ErrNotFound
	}
	return &state, nil
}

func (s *redisStore) Put(ctx context.Context, id string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

// memoryStore is the single-process fallback used when Redis is not
// configured. Entries expire lazily on read.
type memoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	state    State
	deadline time.Time
}

func newMemoryStore(ttl time.Duration) *memoryStore {
	return &memoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (s *memoryStore) Get(ctx context.Context, id string) (*State, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.ttl > 0 && time.Now().After(entry.deadline) {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	state := entry.state
	return &state, nil
}

func (s *memoryStore) Put(ctx context.Context, id string, state *State) error {
	state.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{
		state:    *state,
		deadline: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *memoryStore) Close() error { return nil }

// maskRedisURL hides credentials before they reach the log stream.
func maskRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "redis://***"
	}
	if u.User != nil {
		u.User = url.UserPassword("***", "***")
	}
	return u.String()
}
