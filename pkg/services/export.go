package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"note-drop/pkg/store"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var ExportFormats = []string{"json", "yaml", "toml"}

// EncodePages writes the slug to markdown mapping in the given format.
func EncodePages(pages map[string]string, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(pages); err != nil {
			return nil, err
		}
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(pages); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case "toml":
		enc := toml.NewEncoder(&buf)
		if err := enc.Encode(pages); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return buf.Bytes(), nil
}

// DecodePages parses a mapping produced by EncodePages. Non-string values
// are rejected.
func DecodePages(content []byte, format string) (map[string]string, error) {
	var raw map[string]interface{}
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(content, &raw)
	case "yaml":
		err = yaml.Unmarshal(content, &raw)
	case "toml":
		err = toml.Unmarshal(content, &raw)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	pages := make(map[string]string, len(raw))
	for slug, value := range raw {
		text, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("page %q: markdown must be a string, got %T", slug, value)
		}
		pages[slug] = text
	}
	return pages, nil
}

// FormatFromPath guesses an export format from a file extension.
func FormatFromPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return "yaml"
	case strings.HasSuffix(lower, ".toml"):
		return "toml"
	default:
		return "json"
	}
}

func ExportPages(ctx context.Context, s store.Store) (map[string]string, error) {
	slugs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	pages := make(map[string]string, len(slugs))
	for _, slug := range slugs {
		markdown, err := s.Get(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("export %q: %w", slug, err)
		}
		pages[slug] = markdown
	}
	return pages, nil
}

// ImportPages puts every page and returns how many were written.
func ImportPages(ctx context.Context, s store.Store, pages map[string]string) (int, error) {
	n := 0
	for slug, markdown := range pages {
		if slug == "" {
			return n, fmt.Errorf("import: empty slug")
		}
		if err := s.Put(ctx, slug, markdown); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
