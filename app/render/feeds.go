package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/spacetraveling/app/prismic"
)

// Syndication holds the generated RSS and Atom documents.
type Syndication struct {
	RSS  string
	Atom string
}

// Feeds builds RSS and Atom documents for the newest posts.
func (r *Renderer) Feeds(docs []prismic.Document, baseURL string, now time.Time) (*Syndication, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	feed := &feeds.Feed{
		Title:       r.site.Title,
		Link:        &feeds.Link{Href: baseURL + "/"},
		Description: r.site.Description,
		Id:          baseURL + "/",
		Created:     now,
	}

	limit := min(len(docs), r.site.Feed.MaxItems)
	for _, doc := range docs[:limit] {
		item := &feeds.Item{
			Id:          baseURL + "/post/" + doc.UID,
			Title:       doc.Data.Title,
			Link:        &feeds.Link{Href: baseURL + "/post/" + doc.UID},
			Description: doc.Data.Subtitle,
		}
		if doc.Data.Author != "" {
			item.Author = &feeds.Author{Name: doc.Data.Author}
		}
		if doc.FirstPublicationDate != nil {
			item.Created = *doc.FirstPublicationDate
		}
		if doc.LastPublicationDate != nil {
			item.Updated = *doc.LastPublicationDate
		}
		feed.Items = append(feed.Items, item)
	}

	if len(feed.Items) > 0 && !feed.Items[0].Created.IsZero() {
		feed.Updated = feed.Items[0].Created
	}

	rss, err := feed.ToRss()
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSS: %w", err)
	}
	atom, err := feed.ToAtom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate Atom: %w", err)
	}

	return &Syndication{RSS: rss, Atom: atom}, nil
}

// CheckFeed parses a generated feed back and returns its item count.
func CheckFeed(data string) (int, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader([]byte(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed: %w", err)
	}
	return len(parsed.Items), nil
}
