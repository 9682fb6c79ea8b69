// Package store persists page markdown keyed by slug.
package store

import (
	"context"
	"errors"
	"fmt"

	"note-drop/pkg/config"
	"note-drop/pkg/logger"
)

// ErrNotFound is returned by Get for a slug that was never saved.
var ErrNotFound = errors.New("page not found")

// Store maps slugs to markdown text. Last writer wins per slug.
type Store interface {
	Get(ctx context.Context, slug string) (string, error)
	Put(ctx context.Context, slug, markdown string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// StorageError reports a failure of the underlying medium.
type StorageError struct {
	Op   string
	Slug string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Slug == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Slug, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, slug string, err error) error {
	return &StorageError{Op: op, Slug: slug, Err: err}
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.Path, WithFileLogger(log)), nil
	case "sqlite", "postgres":
		s, err := OpenSQLStore(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := OpenRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
