package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"note-drop/pkg/models"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	DefaultMarkdown    = "# Untitled Page\n\nStart writing your markdown here..."
	untitledTitle      = "Untitled Page"
	untitledDesc       = "Start writing your notes..."
	descriptionMaxRune = 160
)

// Renderer converts markdown to HTML. Safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
	}
}

func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return buf.String(), nil
}

// RenderOrRaw renders markdown, falling back to the escaped raw text when
// conversion fails.
func (r *Renderer) RenderOrRaw(markdown string) template.HTML {
	out, err := r.Render(markdown)
	if err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(markdown) + "</pre>")
	}
	return template.HTML(out)
}

// PageMetadata derives the page title and description from its markdown.
func PageMetadata(slug, markdown string) models.PageMeta {
	if markdown == "" {
		return models.PageMeta{Title: untitledTitle, Description: untitledDesc}
	}

	lines := strings.Split(markdown, "\n")
	title := capitalize(slug)
	var description string

	if strings.HasPrefix(lines[0], "# ") {
		title = strings.TrimSpace(strings.Replace(lines[0], "# ", "", 1))
		description = strings.TrimSpace(truncate(strings.Join(lines[1:], " "), descriptionMaxRune))
	} else {
		description = strings.TrimSpace(truncate(markdown, descriptionMaxRune))
	}

	description = strings.NewReplacer("#", "", "*", "", "`", "").Replace(description)
	return models.PageMeta{Title: title, Description: description}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
