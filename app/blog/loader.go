package blog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/lysyi3m/spacetraveling/app/prismic"
)

// Loader reads the post listing one page at a time.
type Loader struct {
	source ContentSource
	opts   Options
}

func NewLoader(source ContentSource, opts Options) *Loader {
	return &Loader{
		source: source,
		opts:   opts.withDefaults(),
	}
}

// LoadInitialPage returns the first page of the listing. A non-empty ref
// scopes the query to that content version.
func (l *Loader) LoadInitialPage(ctx context.Context, ref string) (FeedPage, error) {
	resp, err := l.source.Query(ctx, prismic.QueryOptions{
		DocumentType: l.opts.DocumentType,
		PageSize:     l.opts.PageSize,
		Page:         1,
		Ref:          ref,
		Orderings:    l.opts.Ordering,
		Fetch:        l.opts.summaryFields(),
	})
	if err != nil {
		return FeedPage{}, unavailable("load initial page", err)
	}

	return pageFromResponse(resp), nil
}

// LoadNextPage fetches the page a cursor points to and returns it as is.
func (l *Loader) LoadNextPage(ctx context.Context, cursor string) (FeedPage, error) {
	if err := l.validateCursor(cursor); err != nil {
		return FeedPage{}, err
	}

	resp, err := l.source.FetchPage(ctx, cursor)
	if err != nil {
		return FeedPage{}, unavailable("load next page", err)
	}

	return pageFromResponse(resp), nil
}

// validateCursor accepts only absolute URLs pointing at the content API host.
func (l *Loader) validateCursor(cursor string) error {
	if strings.TrimSpace(cursor) == "" {
		return fmt.Errorf("%w: cursor is empty", ErrInvalidCursor)
	}

	parsed, err := url.Parse(cursor)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: %q is not an absolute http url", ErrInvalidCursor, cursor)
	}

	endpoint := l.source.Endpoint()
	if !strings.EqualFold(parsed.Host, endpoint.Host) {
		return fmt.Errorf("%w: host %q does not match content api host %q", ErrInvalidCursor, parsed.Host, endpoint.Host)
	}

	return nil
}

// AppendPage returns a new slice with the page items after the accumulated ones.
func AppendPage(accumulated []PostSummary, page FeedPage) []PostSummary {
	merged := make([]PostSummary, 0, len(accumulated)+len(page.Items))
	merged = append(merged, accumulated...)
	return append(merged, page.Items...)
}
