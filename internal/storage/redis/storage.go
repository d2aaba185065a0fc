package redis

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/acctstore/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface. Each
// account file is one string key; root namespaces the keys.
type Storage struct {
	client *redis.Client
	cfg    Config
	root   string
}

// New creates a new Redis storage instance
func New(cfg Config, root string) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg, root), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, root string) *Storage {
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = DefaultConfig().ScanCount
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		root:   root,
	}
}

// Client exposes the underlying connection, e.g. to build a Locker
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Directory = (*Storage)(nil)

func (s *Storage) Root() string {
	return s.root
}

// File operations

func (s *Storage) ReadFile(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, fileKey(s.root, name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		return nil, err
	}
	return data, nil
}

func (s *Storage) WriteFile(ctx context.Context, name string, data []byte) error {
	return s.client.Set(ctx, fileKey(s.root, name), data, 0).Err()
}

func (s *Storage) DeleteFile(ctx context.Context, name string) error {
	n, err := s.client.Del(ctx, fileKey(s.root, name)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	return nil
}

// Listing operations

func (s *Storage) List(ctx context.Context, pattern string) ([]string, error) {
	// Validate with the same glob rules the other backends use
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}

	prefix := fileKeyPrefix(s.root)
	match := filePattern(s.root, pattern)

	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, s.cfg.ScanCount).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			seen[strings.TrimPrefix(key, prefix)] = struct{}{}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	// SCAN may return a key more than once
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *Storage) Exists(ctx context.Context, pattern string) (bool, error) {
	names, err := s.List(ctx, pattern)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}
