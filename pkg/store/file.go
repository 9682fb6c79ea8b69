package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"note-drop/pkg/logger"
)

// FileStore keeps every page in one pretty-printed JSON object.
//
// Each Put reads the whole mapping, changes one key and rewrites the file.
// Cycles within a process are serialised and the file is swapped in with a
// rename, so readers never see a partial write. Separate processes sharing
// the same file can still overwrite each other.
//
// A file that does not parse reads as empty. The next Put moves it aside to
// "<path>.corrupt-<timestamp>" and starts a fresh mapping.
type FileStore struct {
	path string
	log  *logger.Logger
	now  func() time.Time
	mu   sync.Mutex
}

type FileOption func(*FileStore)

func WithFileLogger(l *logger.Logger) FileOption {
	return func(s *FileStore) { s.log = l }
}

func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("store")
	return s
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(ctx context.Context, slug string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages, err := s.read()
	if err != nil && !errors.Is(err, errCorrupt) {
		return "", storageErr("get", slug, err)
	}
	markdown, ok := pages[slug]
	if !ok {
		return "", ErrNotFound
	}
	return markdown, nil
}

func (s *FileStore) Put(ctx context.Context, slug, markdown string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pages, err := s.read()
	if errors.Is(err, errCorrupt) {
		err = s.moveAside(err)
	}
	if err != nil {
		return storageErr("put", slug, err)
	}
	pages[slug] = markdown
	if err := s.write(pages); err != nil {
		return storageErr("put", slug, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages, err := s.read()
	if err != nil && !errors.Is(err, errCorrupt) {
		return nil, storageErr("list", "", err)
	}
	slugs := make([]string, 0, len(pages))
	for slug := range pages {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (s *FileStore) Close() error { return nil }

var errCorrupt = errors.New("data file is not a JSON object of strings")

// read returns an empty mapping when the file does not exist yet. An
// unparsable file also yields an empty mapping, together with errCorrupt so
// that writers refuse to replace it.
func (s *FileStore) read() (map[string]string, error) {
	pages := map[string]string{}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return pages, nil
	}
	if err != nil {
		return pages, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return pages, nil
	}
	if err := json.Unmarshal(raw, &pages); err != nil {
		return map[string]string{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if pages == nil {
		pages = map[string]string{}
	}
	return pages, nil
}

// moveAside renames an unparsable data file so the next write starts over
// without destroying what was there.
func (s *FileStore) moveAside(cause error) error {
	backup := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().UTC().Format("20060102T150405.000000000Z"))
	if err := os.Rename(s.path, backup); err != nil {
		return err
	}
	s.log.Warnw("Data file was corrupt, moved aside", "file", s.path, "backup", backup, "error", cause)
	return nil
}

func (s *FileStore) write(pages map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pages); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".pages-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
