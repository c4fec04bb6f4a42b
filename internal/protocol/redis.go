package protocol

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces protocol keys.
const DefaultRedisPrefix = "veil"

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// Prefix namespaces keys. Defaults to DefaultRedisPrefix.
	Prefix string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration
}

// RedisStore keeps each protocol in a hash at <prefix>:protocol:<id> and
// tracks IDs in the set <prefix>:protocols.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if opts.TLS != nil {
		redisOpts.TLSConfig = opts.TLS
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreFromClient(client, opts.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":protocol:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":protocols"
}

func (s *RedisStore) Get(ctx context.Context, id string) (Protocol, error) {
	if IsLegacy(id) {
		return Legacy(), nil
	}
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return Protocol{}, fmt.Errorf("failed to read protocol %s: %w", id, err)
	}
	if len(fields) == 0 {
		return Protocol{}, ErrNotFound
	}
	return decodeFields(id, fields)
}

func (s *RedisStore) Put(ctx context.Context, p Protocol) error {
	if err := checkWritable(p.ID); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(p.ID),
			"name", p.Name,
			"built_in", strconv.FormatBool(p.BuiltIn),
			"created_at", p.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.SAdd(ctx, s.indexKey(), p.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store protocol %s: %w", p.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := checkWritable(id); err != nil {
		return err
	}
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, s.key(id))
		pipe.SRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete protocol %s: %w", id, err)
	}
	if removed.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Protocol, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list protocols: %w", err)
	}

	custom := make([]Protocol, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Index entry without a hash; skip until the next delete cleans it up.
			continue
		}
		if err != nil {
			return nil, err
		}
		custom = append(custom, p)
	}
	return withLegacy(custom), nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeFields(id string, fields map[string]string) (Protocol, error) {
	p := Protocol{ID: id, Name: fields["name"]}
	if raw := fields["created_at"]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Protocol{}, fmt.Errorf("failed to parse protocol %s created_at: %w", id, err)
		}
		p.CreatedAt = ts
	}
	p.Hydrate()
	return p, nil
}
