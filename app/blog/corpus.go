package blog

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/lysyi3m/spacetraveling/app/prismic"
)

const corpusCacheSize = 8

// Corpus holds the full ordered list of blog documents per content ref.
// Concurrent requests for the same ref share one fetch. Only the master ref
// is cached: a preview ref keeps the same value while drafts change.
type Corpus struct {
	source  ContentSource
	opts    Options
	group   singleflight.Group
	entries *lru.Cache[string, []prismic.Document]
}

func NewCorpus(source ContentSource, opts Options) *Corpus {
	entries, _ := lru.New[string, []prismic.Document](corpusCacheSize)
	return &Corpus{
		source:  source,
		opts:    opts.withDefaults(),
		entries: entries,
	}
}

// Documents returns the corpus at ref, or at the master ref when ref is empty.
// Documents carry the summary fields only.
func (c *Corpus) Documents(ctx context.Context, ref string) ([]prismic.Document, error) {
	master, err := c.source.MasterRef(ctx)
	if err != nil && ref == "" {
		return nil, unavailable("resolve master ref", err)
	}
	if ref == "" {
		ref = master
	}
	cacheable := ref == master

	if cacheable {
		if docs, ok := c.entries.Get(ref); ok {
			return docs, nil
		}
	}

	// The shared fetch outlives any single caller; each caller stops
	// waiting on its own context.
	fetchCtx := context.WithoutCancel(ctx)
	results := c.group.DoChan(ref, func() (any, error) {
		docs, err := c.source.QueryAll(fetchCtx, prismic.QueryOptions{
			DocumentType: c.opts.DocumentType,
			Ref:          ref,
			Orderings:    c.opts.Ordering,
			Fetch:        c.opts.summaryFields(),
		})
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.entries.Add(ref, docs)
		}
		return docs, nil
	})

	select {
	case <-ctx.Done():
		return nil, unavailable("fetch corpus", ctx.Err())
	case res := <-results:
		if res.Err != nil {
			return nil, unavailable("fetch corpus", res.Err)
		}
		if res.Shared {
			slog.Debug("Corpus fetch shared", "ref", ref)
		}
		return res.Val.([]prismic.Document), nil
	}
}
