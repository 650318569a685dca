package blog

import (
	"context"
	"net/url"

	"github.com/lysyi3m/spacetraveling/app/prismic"
)

// ContentSource is the part of the Prismic client the blog depends on.
type ContentSource interface {
	Endpoint() *url.URL
	MasterRef(ctx context.Context) (string, error)
	Query(ctx context.Context, opts prismic.QueryOptions) (*prismic.SearchResponse, error)
	QueryAll(ctx context.Context, opts prismic.QueryOptions) ([]prismic.Document, error)
	FetchPage(ctx context.Context, pageURL string) (*prismic.SearchResponse, error)
	GetByUID(ctx context.Context, documentType, uid, ref string) (*prismic.Document, error)
}

// PageLoader fetches the page a cursor points to.
type PageLoader interface {
	LoadNextPage(ctx context.Context, cursor string) (FeedPage, error)
}

var _ ContentSource = (*prismic.Client)(nil)
var _ PageLoader = (*Loader)(nil)
