package blog

import (
	"time"

	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/richtext"
)

type PostSummary struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
}

type Section struct {
	Heading string          `json:"heading"`
	Body    richtext.Blocks `json:"body"`
}

// Neighbor is the previous or next post relative to a resolved post.
type Neighbor struct {
	UID   string `json:"uid"`
	Title string `json:"title"`
}

type PostDetail struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	LastPublicationDate  *time.Time `json:"last_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
	BannerURL            string     `json:"banner_url"`
	Sections             []Section  `json:"sections"`
	PreviousPost         *Neighbor  `json:"previous_post,omitempty"`
	NextPost             *Neighbor  `json:"next_post,omitempty"`
	ReadingTime          int        `json:"reading_time"`
}

// FeedPage is one page of the post listing. An empty NextCursor is terminal.
type FeedPage struct {
	Items      []PostSummary `json:"items"`
	NextCursor string        `json:"next_cursor"`
}

func (p FeedPage) HasMore() bool {
	return p.NextCursor != ""
}

func summaryFromDocument(doc prismic.Document) PostSummary {
	return PostSummary{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate,
		Title:                doc.Data.Title,
		Subtitle:             doc.Data.Subtitle,
		Author:               doc.Data.Author,
	}
}

func pageFromResponse(resp *prismic.SearchResponse) FeedPage {
	items := make([]PostSummary, 0, len(resp.Results))
	for _, doc := range resp.Results {
		items = append(items, summaryFromDocument(doc))
	}
	return FeedPage{
		Items:      items,
		NextCursor: resp.Next(),
	}
}

func detailFromDocument(doc prismic.Document) *PostDetail {
	sections := make([]Section, 0, len(doc.Data.Content))
	for _, group := range doc.Data.Content {
		sections = append(sections, Section{
			Heading: group.Heading,
			Body:    group.Body,
		})
	}

	return &PostDetail{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate,
		LastPublicationDate:  doc.LastPublicationDate,
		Title:                doc.Data.Title,
		Subtitle:             doc.Data.Subtitle,
		Author:               doc.Data.Author,
		BannerURL:            doc.Data.Banner.URL,
		Sections:             sections,
	}
}
