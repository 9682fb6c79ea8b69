package services

import (
	"bytes"
	"encoding/xml"
	"net/url"
	"strings"
	"time"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// BuildSitemap lists the site root followed by one entry per slug.
func BuildSitemap(baseURL string, slugs []string, now time.Time) ([]byte, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	lastMod := now.UTC().Format(time.RFC3339)

	set := urlSet{XMLNS: sitemapNS}
	set.URLs = append(set.URLs, sitemapURL{Loc: baseURL, LastMod: lastMod})
	for _, slug := range slugs {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     baseURL + "/" + url.PathEscape(slug),
			LastMod: lastMod,
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
