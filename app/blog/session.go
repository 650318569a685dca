package blog

import (
	"context"
	"slices"
	"sync"
)

type SessionState int

const (
	SessionIdle SessionState = iota
	SessionLoading
	SessionExhausted
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionLoading:
		return "loading"
	case SessionExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Session accumulates listing pages for one reader. At most one page
// request is in flight at a time.
type Session struct {
	loader PageLoader

	mu      sync.Mutex
	items   []PostSummary
	cursor  string
	loading bool
}

func NewSession(loader PageLoader, initial FeedPage) *Session {
	return &Session{
		loader: loader,
		items:  slices.Clone(initial.Items),
		cursor: initial.NextCursor,
	}
}

// LoadMore fetches the next page and appends it. It reports false without
// fetching when the session is exhausted or a load is already running.
// On error the session is left as it was so the caller can retry.
func (s *Session) LoadMore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.loading || s.cursor == "" {
		s.mu.Unlock()
		return false, nil
	}
	s.loading = true
	cursor := s.cursor
	s.mu.Unlock()

	page, err := s.loader.LoadNextPage(ctx, cursor)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		return false, err
	}

	s.items = AppendPage(s.items, page)
	s.cursor = page.NextCursor
	return true, nil
}

func (s *Session) Items() []PostSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func (s *Session) Cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor != ""
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.loading:
		return SessionLoading
	case s.cursor == "":
		return SessionExhausted
	default:
		return SessionIdle
	}
}
