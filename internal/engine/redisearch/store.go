// Package redisearch implements the engine.Store boundary on the Redis Query
// Engine (Redis 8+) via rueidis. Documents are stored as JSON under
// <prefix><index>:<id>; search indices are FT indices created ON JSON over
// that prefix.
package redisearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/metrics"
)

// Compile-time check: Store implements engine.Store.
var _ engine.Store = (*Store)(nil)

// DefaultKeyPrefix namespaces all document keys.
const DefaultKeyPrefix = "vecbridge:"

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// KeyPrefix namespaces document keys; DefaultKeyPrefix when empty.
	KeyPrefix string
}

// Store implements engine.Store via rueidis for Redis 8+.
type Store struct {
	client rueidis.Client
	prefix string
	log    *zap.Logger
}

// NewStore connects a new Redis store via rueidis. The returned store owns
// the connection.
func NewStore(cfg Config, log *zap.Logger) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return NewStoreWithClient(client, cfg.KeyPrefix, log), nil
}

// NewStoreWithClient wraps an existing rueidis client. The caller keeps
// responsibility for closing it unless it hands the store to an owning
// vecbridge client.
func NewStoreWithClient(client rueidis.Client, keyPrefix string, log *zap.Logger) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{client: client, prefix: keyPrefix, log: log}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.b().Ping().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// docKey builds the full Redis key for a document.
func (s *Store) docKey(index, id string) string {
	return s.prefix + index + ":" + id
}

// docID strips the key namespace back off a Redis key returned by FT.SEARCH.
func (s *Store) docID(index, key string) string {
	prefix := s.prefix + index + ":"
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}

// observe records operation metrics; meant to be deferred.
func observe(op string, start time.Time, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
