package loredex

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs    []string
	username string
	password string

	keyPrefix  string
	dimensions int

	hnswM           int
	hnswEFConstruct int

	openAIKey     string
	openAIBaseURL string
	model         string
	maxInputChars int
	embedder      Embedder

	threshold float64
	limit     int
	maxLimit  int

	queueSize   int
	workers     int
	maxAttempts int
	jobTimeout  time.Duration

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedisCluster configures the client to connect to a Redis cluster.
func WithRedisCluster(addrs []string, password string) Option {
	return func(c *clientConfig) {
		c.addrs = addrs
		c.password = password
	}
}

// WithKeyPrefix sets the key namespace for stored hashes and the index
// name. Default: "loredex:".
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithVectorDimensions sets the embedding dimensionality. Fixed for the
// lifetime of the index. Default: 1536.
func WithVectorDimensions(dim int) Option {
	return func(c *clientConfig) {
		c.dimensions = dim
	}
}

// WithHNSW configures HNSW index construction parameters.
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	}
}

// WithOpenAI configures the built-in OpenAI-compatible embedding
// provider. baseURL may be empty for api.openai.com.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return func(c *clientConfig) {
		c.openAIKey = apiKey
		c.openAIBaseURL = baseURL
		c.model = model
	}
}

// WithMaxInputChars caps the embeddable text length. Longer inputs are
// rejected rather than truncated.
func WithMaxInputChars(n int) Option {
	return func(c *clientConfig) {
		c.maxInputChars = n
	}
}

// WithEmbedder sets a custom embedding provider, replacing the built-in
// OpenAI one.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithSearchDefaults overrides the default similarity threshold and
// result limit applied when a search request carries none.
func WithSearchDefaults(threshold float64, limit, maxLimit int) Option {
	return func(c *clientConfig) {
		c.threshold = threshold
		c.limit = limit
		c.maxLimit = maxLimit
	}
}

// WithIndexingQueue tunes the indexing pipeline: queue capacity, worker
// count, and retry attempts per job.
func WithIndexingQueue(queueSize, workers, maxAttempts int) Option {
	return func(c *clientConfig) {
		c.queueSize = queueSize
		c.workers = workers
		c.maxAttempts = maxAttempts
	}
}

// WithJobTimeout sets the per-attempt deadline for indexing jobs.
func WithJobTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.jobTimeout = d
	}
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
