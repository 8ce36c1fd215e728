package vecbridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecbridge/internal/config"
	"github.com/kailas-cloud/vecbridge/internal/embedding"
	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/engine/redisearch"
	"github.com/kailas-cloud/vecbridge/internal/logger"
	"github.com/kailas-cloud/vecbridge/internal/mapping"
	"github.com/kailas-cloud/vecbridge/internal/metrics"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the vecbridge SDK entry point. One Client holds one database
// connection (owned or borrowed) and hands out collection handles that share
// it. Safe for concurrent use.
type Client struct {
	store     engine.Store
	ownsStore bool

	log              *zap.Logger
	mapOpts          mapping.Options
	defaultGenerator EmbeddingGenerator
}

// New creates a Client and waits for the database to accept commands.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{readinessTimeout: defaultReadinessTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.defaultGenerator == nil && cfg.openAI != nil {
		cfg.openAI.Logger = cfg.logger
		cfg.defaultGenerator = embedding.NewOpenAIGenerator(cfg.openAI)
	}

	store, owned, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(context.Background(), cfg.readinessTimeout); err != nil {
		if owned {
			store.Close()
		}
		return nil, fmt.Errorf("vecbridge: database not ready: %w", err)
	}

	return &Client{
		store:     store,
		ownsStore: owned,
		log:       cfg.logger,
		mapOpts: mapping.Options{
			HNSWM:              cfg.hnswM,
			HNSWEFConstruction: cfg.hnswEFConstruct,
		},
		defaultGenerator: cfg.defaultGenerator,
	}, nil
}

// NewFromConfig creates a Client from a YAML configuration file.
func NewFromConfig(path string) (*Client, error) {
	fileCfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("vecbridge: %w", err)
	}
	fileCfg.ApplyDefaults()
	if err := fileCfg.Validate(); err != nil {
		return nil, fmt.Errorf("vecbridge: %w", err)
	}

	log, err := logger.NewLogger(fileCfg.Logging.Env, fileCfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("vecbridge: %w", err)
	}

	opts := []Option{
		WithRedis(fileCfg.Database.Addrs...),
		WithAuth(fileCfg.Database.Username, fileCfg.Database.Password),
		WithDB(fileCfg.Database.DB),
		WithKeyPrefix(fileCfg.Database.KeyPrefix),
		WithHNSW(fileCfg.Index.HNSWM, fileCfg.Index.HNSWEFConstruct),
		WithLogger(log),
		WithReadinessTimeout(time.Duration(fileCfg.Database.ReadinessTimeout) * time.Second),
	}
	if fileCfg.Embedding.APIKey != "" {
		gen := embedding.NewOpenAIGenerator(&embedding.OpenAIConfig{
			APIKey:     fileCfg.Embedding.APIKey,
			BaseURL:    fileCfg.Embedding.BaseURL,
			Model:      fileCfg.Embedding.Model,
			Dimensions: fileCfg.Embedding.Dimensions,
			Logger:     log,
		})
		opts = append(opts, WithDefaultGenerator(gen))
	}
	return New(opts...)
}

func createStore(cfg *clientConfig) (engine.Store, bool, error) {
	if cfg.rueidisClient != nil {
		return redisearch.NewStoreWithClient(cfg.rueidisClient, cfg.keyPrefix, cfg.logger), false, nil
	}
	if len(cfg.addrs) == 0 {
		return nil, false, errors.New("vecbridge: database address required (use WithRedis or WithRueidisClient)")
	}
	store, err := redisearch.NewStore(redisearch.Config{
		Addrs:     cfg.addrs,
		Username:  cfg.username,
		Password:  cfg.password,
		DB:        cfg.db,
		KeyPrefix: cfg.keyPrefix,
	}, cfg.logger)
	if err != nil {
		return nil, false, fmt.Errorf("vecbridge: create store: %w", err)
	}
	return store, true, nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady blocks until the database accepts commands or the timeout
// elapses.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return c.store.WaitForReady(ctx, timeout)
}

// ListCollections returns the names of all collections known to the store.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	names, err := c.store.ListIndices(ctx)
	if err != nil {
		return nil, &StorageOperationError{Operation: "list collections", Err: err}
	}
	return names, nil
}

// Close releases the database connection if the Client owns it. Borrowed
// connections (WithRueidisClient) stay open.
func (c *Client) Close() {
	if c.ownsStore {
		c.store.Close()
	}
}

// RegisterMetrics registers the SDK's prometheus collectors on the default
// registry. Call at most once per process.
func RegisterMetrics() {
	metrics.RegisterStoreMetrics()
	metrics.RegisterEmbeddingMetrics()
}
