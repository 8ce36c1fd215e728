package vecbridge

import (
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecbridge/internal/embedding"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	keyPrefix string

	// borrowed, caller-owned connection; when set the client never closes it
	rueidisClient rueidis.Client

	hnswM           int
	hnswEFConstruct int

	defaultGenerator EmbeddingGenerator
	openAI           *embedding.OpenAIConfig

	logger           *zap.Logger
	readinessTimeout time.Duration
}

// WithRedis configures the client to connect to a Redis-compatible instance
// running the query engine.
func WithRedis(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = addrs
	})
}

// WithAuth sets the database credentials. Username may be empty for
// password-only authentication.
func WithAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithDB selects the database number. Default 0.
func WithDB(db int) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = db
	})
}

// WithKeyPrefix sets the key namespace documents are stored under.
// Default "vecbridge:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithRueidisClient supplies an existing connection instead of dialing a new
// one. The connection stays owned by the caller: Close on the Client will not
// close it, and multiple Clients may share it.
func WithRueidisClient(client rueidis.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.rueidisClient = client
	})
}

// WithHNSW configures HNSW index build parameters for collections created
// through this client. Zero values keep the engine defaults.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithDefaultGenerator sets the embedding generator applied to text-typed
// vector properties that do not name their own.
func WithDefaultGenerator(g EmbeddingGenerator) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultGenerator = g
	})
}

// WithOpenAIEmbedding sets the default embedding generator to an
// OpenAI-compatible API. dimensions zero keeps the model's native size.
// WithDefaultGenerator takes precedence when both are given.
func WithOpenAIEmbedding(apiKey, model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAI = &embedding.OpenAIConfig{
			APIKey:     apiKey,
			Model:      model,
			Dimensions: dimensions,
		}
	})
}

// WithLogger enables structured logging for SDK operations. Default is a nop
// logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithReadinessTimeout bounds how long New waits for the database to accept
// commands. Default 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}
