package blog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lysyi3m/spacetraveling/app/prismic"
)

const wordsPerMinute = 200

// Resolver builds the full reading view of one post.
type Resolver struct {
	source ContentSource
	corpus *Corpus
	opts   Options
}

func NewResolver(source ContentSource, corpus *Corpus, opts Options) *Resolver {
	return &Resolver{
		source: source,
		corpus: corpus,
		opts:   opts.withDefaults(),
	}
}

// Resolve fetches the post with the given UID and places it in the corpus
// to find its neighbours. A non-empty ref scopes both fetches.
func (r *Resolver) Resolve(ctx context.Context, uid, ref string) (*PostDetail, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: empty uid", ErrPostNotFound)
	}

	doc, err := r.source.GetByUID(ctx, r.opts.DocumentType, uid, ref)
	if errors.Is(err, prismic.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, uid)
	}
	if err != nil {
		return nil, unavailable("fetch post "+uid, err)
	}

	docs, err := r.corpus.Documents(ctx, ref)
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(docs, func(d prismic.Document) bool {
		return d.UID == uid
	})
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s is not in the corpus", ErrPostNotFound, uid)
	}

	detail := detailFromDocument(*doc)
	detail.PreviousPost, detail.NextPost = Neighbors(docs, idx)
	detail.ReadingTime = EstimateReadingTime(detail.Sections)

	return detail, nil
}

// Neighbors returns the documents right before and after position idx.
func Neighbors(docs []prismic.Document, idx int) (previous, next *Neighbor) {
	if idx < 0 || idx >= len(docs) {
		return nil, nil
	}
	if idx > 0 {
		previous = &Neighbor{UID: docs[idx-1].UID, Title: docs[idx-1].Data.Title}
	}
	if idx < len(docs)-1 {
		next = &Neighbor{UID: docs[idx+1].UID, Title: docs[idx+1].Data.Title}
	}
	return previous, next
}

// EstimateReadingTime returns whole minutes at 200 words per minute,
// counting the words of every heading and body block.
func EstimateReadingTime(sections []Section) int {
	words := 0
	for _, section := range sections {
		words += len(strings.Fields(section.Heading))
		for _, block := range section.Body {
			words += len(strings.Fields(block.Text))
		}
	}

	return (words + wordsPerMinute - 1) / wordsPerMinute
}
