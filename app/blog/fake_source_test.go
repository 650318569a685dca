package blog

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/lysyi3m/spacetraveling/app/prismic"
)

// fakeSource serves an in-memory corpus, one document per page.
type fakeSource struct {
	docs     []prismic.Document
	err      error
	endpoint *url.URL
	block    chan struct{} // when set, QueryAll waits for it to close

	queryCalls    atomic.Int32
	queryAllCalls atomic.Int32
	fetchCalls    atomic.Int32

	mu        sync.Mutex
	lastQuery prismic.QueryOptions
}

func newFakeSource(docs ...prismic.Document) *fakeSource {
	endpoint, _ := url.Parse("https://blog.cdn.prismic.io/api/v2")
	return &fakeSource{docs: docs, endpoint: endpoint}
}

func (f *fakeSource) Endpoint() *url.URL {
	return f.endpoint
}

func (f *fakeSource) MasterRef(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "master", nil
}

func (f *fakeSource) Query(ctx context.Context, opts prismic.QueryOptions) (*prismic.SearchResponse, error) {
	f.queryCalls.Add(1)
	f.mu.Lock()
	f.lastQuery = opts
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.page(opts.Page, opts.PageSize), nil
}

func (f *fakeSource) QueryAll(ctx context.Context, opts prismic.QueryOptions) ([]prismic.Document, error) {
	f.queryAllCalls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]prismic.Document(nil), f.docs...), nil
}

func (f *fakeSource) FetchPage(ctx context.Context, pageURL string) (*prismic.SearchResponse, error) {
	f.fetchCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	page, _ := strconv.Atoi(parsed.Query().Get("page"))
	return f.page(page, 1), nil
}

func (f *fakeSource) GetByUID(ctx context.Context, documentType, uid, ref string) (*prismic.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, doc := range f.docs {
		if doc.UID == uid {
			return &doc, nil
		}
	}
	return nil, prismic.ErrNotFound
}

func (f *fakeSource) page(page, size int) *prismic.SearchResponse {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}

	start := min((page-1)*size, len(f.docs))
	end := min(start+size, len(f.docs))
	resp := &prismic.SearchResponse{
		Page:    page,
		Results: append([]prismic.Document(nil), f.docs[start:end]...),
	}
	if end < len(f.docs) {
		next := f.endpoint.String() + "/documents/search?ref=master&page=" + strconv.Itoa(page+1) + "&pageSize=" + strconv.Itoa(size)
		resp.NextPage = &next
	}
	return resp
}

func testDocument(uid, title string) prismic.Document {
	return prismic.Document{
		UID:  uid,
		Type: DefaultDocumentType,
		Data: prismic.DocumentData{
			Title:    title,
			Subtitle: title + " subtitle",
			Author:   "Joseph Oliveira",
		},
	}
}

var errTransport = errors.New("connection refused")
