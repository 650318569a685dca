package prismic

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/spacetraveling/app/richtext"
)

// Ref identifies one content version published (or previewed) in the repository.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

// APIInfo is the body of the repository root endpoint.
type APIInfo struct {
	Refs []Ref `json:"refs"`
}

func (a APIInfo) MasterRef() string {
	for _, ref := range a.Refs {
		if ref.IsMasterRef {
			return ref.Ref
		}
	}
	return ""
}

type SearchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Next returns the next page URL, or an empty string on the last page.
func (r SearchResponse) Next() string {
	if r.NextPage == nil {
		return ""
	}
	return *r.NextPage
}

type Document struct {
	ID                   string       `json:"id"`
	UID                  string       `json:"uid"`
	Type                 string       `json:"type"`
	Lang                 string       `json:"lang,omitempty"`
	FirstPublicationDate *time.Time   `json:"first_publication_date"`
	LastPublicationDate  *time.Time   `json:"last_publication_date"`
	Data                 DocumentData `json:"data"`
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	time.RFC3339Nano,
}

func parseTimestamp(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", *value)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	type documentAlias Document
	var raw struct {
		documentAlias
		FirstPublicationDate *string `json:"first_publication_date"`
		LastPublicationDate  *string `json:"last_publication_date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	first, err := parseTimestamp(raw.FirstPublicationDate)
	if err != nil {
		return fmt.Errorf("first_publication_date: %w", err)
	}
	last, err := parseTimestamp(raw.LastPublicationDate)
	if err != nil {
		return fmt.Errorf("last_publication_date: %w", err)
	}

	*d = Document(raw.documentAlias)
	d.FirstPublicationDate = first
	d.LastPublicationDate = last
	return nil
}

type DocumentData struct {
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle"`
	Author   string         `json:"author"`
	Banner   Image          `json:"banner"`
	Content  []ContentGroup `json:"content"`
}

type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ContentGroup is one repeatable section of a post: a heading and its rich text body.
type ContentGroup struct {
	Heading string          `json:"heading"`
	Body    richtext.Blocks `json:"body"`
}

// UnmarshalJSON accepts the heading either as a key text string or as a
// single-line rich text field, both of which repositories use for section titles.
func (g *ContentGroup) UnmarshalJSON(data []byte) error {
	var raw struct {
		Heading json.RawMessage `json:"heading"`
		Body    richtext.Blocks `json:"body"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Body = raw.Body
	g.Heading = ""

	if len(raw.Heading) == 0 || string(raw.Heading) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw.Heading, &text); err == nil {
		g.Heading = text
		return nil
	}

	var blocks richtext.Blocks
	if err := json.Unmarshal(raw.Heading, &blocks); err != nil {
		return err
	}
	g.Heading = blocks.Text()
	return nil
}

// QueryOptions describes one documents/search request.
type QueryOptions struct {
	DocumentType string
	PageSize     int
	Page         int
	Ref          string
	Orderings    string
	Fetch        []string
}
