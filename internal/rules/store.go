package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Fetch failures are classified so the cache can log the degradation cause
// without inspecting store internals.
var (
	// ErrUnavailable means the store could not be reached or the
	// document key does not exist.
	ErrUnavailable = errors.New("rules: store unavailable")

	// ErrMalformed means the store returned data that is not a valid
	// rules document.
	ErrMalformed = errors.New("rules: malformed document")
)

// Store supplies the current rules document. Implementations must classify
// every failure as ErrUnavailable or ErrMalformed.
type Store interface {
	Fetch(ctx context.Context) (Document, error)
}

// StoreConfig contains rules store connection configuration.
type StoreConfig struct {
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	Key            string        `yaml:"key" mapstructure:"key"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	FallbackSalt   string        `yaml:"fallback_salt" mapstructure:"fallback_salt"`
}

// RedisStore reads the rules document from a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed rules store. An unreachable Redis at
// construction time is not an error: the cache degrades to the fallback
// document until the store recovers.
func NewRedisStore(cfg StoreConfig, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	store := &RedisStore{
		client: client,
		key:    cfg.Key,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logger.Warn("Rules store unreachable at startup, serving fallback rules until it recovers",
			zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
			zap.Error(err))
	} else {
		logger.Info("Rules store connected",
			zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
			zap.String("key", cfg.Key))
	}

	return store, nil
}

// Fetch retrieves and parses the rules document.
func (s *RedisStore) Fetch(ctx context.Context) (Document, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return Document{}, fmt.Errorf("%w: key %q not set", ErrUnavailable, s.key)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Redact == nil || doc.Salt == "" {
		return Document{}, fmt.Errorf("%w: missing redact list or salt", ErrMalformed)
	}

	return doc, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// maskRedisURL masks credentials in a Redis URL for logging.
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
