package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each page under its own key, "<prefix><slug>".
type RedisStore struct {
	client *redis.Client
	prefix string
}

func OpenRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client, prefix), nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(slug string) string {
	return s.prefix + slug
}

func (s *RedisStore) Get(ctx context.Context, slug string) (string, error) {
	markdown, err := s.client.Get(ctx, s.key(slug)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", storageErr("get", slug, err)
	}
	return markdown, nil
}

func (s *RedisStore) Put(ctx context.Context, slug, markdown string) error {
	if err := s.client.Set(ctx, s.key(slug), markdown, 0).Err(); err != nil {
		return storageErr("put", slug, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	// SCAN may return a key more than once.
	seen := map[string]struct{}{}
	slugs := []string{}
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		slug := strings.TrimPrefix(iter.Val(), s.prefix)
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr("list", "", err)
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
