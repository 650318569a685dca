package blog

import (
	"context"
	"errors"
	"testing"
)

func TestLoadInitialPage(t *testing.T) {
	source := newFakeSource(
		testDocument("first", "First"),
		testDocument("second", "Second"),
	)
	loader := NewLoader(source, Options{})

	page, err := loader.LoadInitialPage(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(page.Items) != 1 {
		t.Fatalf("Expected 1 item with the default page size, got %d", len(page.Items))
	}
	if page.Items[0].UID != "first" {
		t.Errorf("Expected first item 'first', got '%s'", page.Items[0].UID)
	}
	if !page.HasMore() {
		t.Error("Expected a next cursor")
	}

	query := source.lastQuery
	if query.Page != 1 {
		t.Errorf("Expected page 1, got %d", query.Page)
	}
	if query.DocumentType != DefaultDocumentType {
		t.Errorf("Expected document type '%s', got '%s'", DefaultDocumentType, query.DocumentType)
	}
	if query.Orderings != DefaultOrdering {
		t.Errorf("Expected ordering '%s', got '%s'", DefaultOrdering, query.Orderings)
	}
}

func TestLoadInitialPagePreviewRef(t *testing.T) {
	source := newFakeSource(testDocument("first", "First"))
	loader := NewLoader(source, Options{PageSize: 5})

	if _, err := loader.LoadInitialPage(context.Background(), "preview-ref"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if source.lastQuery.Ref != "preview-ref" {
		t.Errorf("Expected ref 'preview-ref', got '%s'", source.lastQuery.Ref)
	}
	if source.lastQuery.PageSize != 5 {
		t.Errorf("Expected page size 5, got %d", source.lastQuery.PageSize)
	}
}

func TestLoadInitialPageUnavailable(t *testing.T) {
	source := newFakeSource()
	source.err = errTransport
	loader := NewLoader(source, Options{})

	_, err := loader.LoadInitialPage(context.Background(), "")
	if !errors.Is(err, ErrContentUnavailable) {
		t.Fatalf("Expected ErrContentUnavailable, got: %v", err)
	}
	if !errors.Is(err, errTransport) {
		t.Errorf("Expected the transport error to be wrapped, got: %v", err)
	}
}

func TestLoadNextPage(t *testing.T) {
	source := newFakeSource(
		testDocument("first", "First"),
		testDocument("second", "Second"),
	)
	loader := NewLoader(source, Options{})
	ctx := context.Background()

	initial, err := loader.LoadInitialPage(ctx, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	next, err := loader.LoadNextPage(ctx, initial.NextCursor)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(next.Items) != 1 || next.Items[0].UID != "second" {
		t.Fatalf("Expected page with 'second', got %+v", next.Items)
	}
	if next.HasMore() {
		t.Errorf("Expected last page to have no cursor, got '%s'", next.NextCursor)
	}
}

func TestLoadNextPageInvalidCursor(t *testing.T) {
	source := newFakeSource(testDocument("first", "First"))
	loader := NewLoader(source, Options{})

	tests := []struct {
		name   string
		cursor string
	}{
		{name: "empty", cursor: ""},
		{name: "blank", cursor: "   "},
		{name: "relative", cursor: "/documents/search?page=2"},
		{name: "foreign host", cursor: "https://evil.example.com/api/v2/documents/search?page=2"},
		{name: "unsupported scheme", cursor: "file:///etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadNextPage(context.Background(), tt.cursor)
			if !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("Expected ErrInvalidCursor, got: %v", err)
			}
		})
	}

	if calls := source.fetchCalls.Load(); calls != 0 {
		t.Errorf("Expected no fetch for invalid cursors, got %d", calls)
	}
}

func TestLoadNextPageUnavailable(t *testing.T) {
	source := newFakeSource()
	source.err = errTransport
	loader := NewLoader(source, Options{})

	_, err := loader.LoadNextPage(context.Background(), "https://blog.cdn.prismic.io/api/v2/documents/search?page=2")
	if !errors.Is(err, ErrContentUnavailable) {
		t.Errorf("Expected ErrContentUnavailable, got: %v", err)
	}
}

func TestAppendPage(t *testing.T) {
	accumulated := []PostSummary{{UID: "a"}, {UID: "b"}}
	page := FeedPage{Items: []PostSummary{{UID: "c"}, {UID: "b"}}}

	merged := AppendPage(accumulated, page)

	expected := []string{"a", "b", "c", "b"}
	if len(merged) != len(expected) {
		t.Fatalf("Expected %d items, got %d", len(expected), len(merged))
	}
	for i, uid := range expected {
		if merged[i].UID != uid {
			t.Errorf("Expected item %d to be '%s', got '%s'", i, uid, merged[i].UID)
		}
	}

	// Inputs stay untouched
	merged[0].UID = "changed"
	if accumulated[0].UID != "a" {
		t.Error("AppendPage should not alias the accumulated slice")
	}
	if len(accumulated) != 2 || len(page.Items) != 2 {
		t.Error("AppendPage should not modify its inputs")
	}
}

func TestAppendPageEmpty(t *testing.T) {
	merged := AppendPage(nil, FeedPage{})
	if merged == nil || len(merged) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", merged)
	}
}
