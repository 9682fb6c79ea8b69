package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type pageModel struct {
	bun.BaseModel `bun:"table:pages"`

	Slug     string `bun:"slug,pk"`
	Markdown string `bun:"markdown,notnull"`
}

// SQLStore keeps one row per slug. Writes are single-row upserts, so
// concurrent saves to different slugs never interfere.
type SQLStore struct {
	db *bun.DB
}

// OpenSQLStore connects with the sqlite3 or postgres driver and creates the
// pages table when missing.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var db *bun.DB
	switch driver {
	case "sqlite":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case "postgres":
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	s := NewSQLStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLStore(db *bun.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*pageModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return storageErr("migrate", "", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, slug string) (string, error) {
	var page pageModel
	err := s.db.NewSelect().Model(&page).Where("slug = ?", slug).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", storageErr("get", slug, err)
	}
	return page.Markdown, nil
}

func (s *SQLStore) Put(ctx context.Context, slug, markdown string) error {
	page := &pageModel{Slug: slug, Markdown: markdown}
	_, err := s.db.NewInsert().
		Model(page).
		On("CONFLICT (slug) DO UPDATE").
		Set("markdown = EXCLUDED.markdown").
		Exec(ctx)
	if err != nil {
		return storageErr("put", slug, err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	var slugs []string
	err := s.db.NewSelect().
		Model((*pageModel)(nil)).
		Column("slug").
		Order("slug ASC").
		Scan(ctx, &slugs)
	if err != nil {
		return nil, storageErr("list", "", err)
	}
	return slugs, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
