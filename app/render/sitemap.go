package render

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"
)

type SitemapEntry struct {
	Path    string
	LastMod *time.Time
}

// Sitemap renders a sitemaps.org urlset for the given site paths.
func Sitemap(baseURL string, entries []SitemapEntry) string {
	baseURL = strings.TrimSuffix(baseURL, "/")

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	buf.WriteString("\n")

	for _, entry := range entries {
		buf.WriteString("  <url>\n")
		writeElement(&buf, "loc", baseURL+entry.Path, 4)
		if entry.LastMod != nil {
			writeElement(&buf, "lastmod", entry.LastMod.UTC().Format(time.RFC3339), 4)
		}
		buf.WriteString("  </url>\n")
	}

	buf.WriteString("</urlset>\n")
	return buf.String()
}

func writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
