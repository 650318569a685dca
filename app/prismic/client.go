package prismic

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultDocumentCacheSize = 512
	masterRefTTL             = 30 * time.Second
	maxPageSize              = 100
)

// Client talks to the documents API of a single Prismic repository.
// Documents fetched at the master ref are cached. Preview refs are not:
// a preview token keeps its value while the drafts behind it change.
type Client struct {
	endpoint    *url.URL
	accessToken string
	userAgent   string
	httpClient  *http.Client
	documents   *lru.Cache[string, Document]
	masterRefs  *expirable.LRU[string, string]
}

type ClientOption func(*Client)

func WithAccessToken(token string) ClientOption {
	return func(c *Client) {
		c.accessToken = strings.TrimSpace(token)
	}
}

func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(endpoint), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid prismic endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid prismic endpoint %q: scheme must be http or https", endpoint)
	}

	documents, err := lru.New[string, Document](defaultDocumentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	c := &Client{
		endpoint:   parsed,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		documents:  documents,
		masterRefs: expirable.NewLRU[string, string](1, nil, masterRefTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the repository API URL the client was built with.
func (c *Client) Endpoint() *url.URL {
	copied := *c.endpoint
	return &copied
}

// MasterRef returns the ref of the currently published content.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	if ref, ok := c.masterRefs.Get("master"); ok {
		return ref, nil
	}

	var info APIInfo
	if err := c.getJSON(ctx, c.withToken(c.endpoint.String()), &info); err != nil {
		return "", fmt.Errorf("failed to fetch api info: %w", err)
	}

	ref := info.MasterRef()
	if ref == "" {
		return "", fmt.Errorf("repository has no master ref")
	}
	c.masterRefs.Add("master", ref)
	return ref, nil
}

// Query runs a single documents/search request.
func (c *Client) Query(ctx context.Context, opts QueryOptions) (*SearchResponse, error) {
	ref, err := c.resolveRef(ctx, opts.Ref)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("ref", ref)
	if opts.DocumentType != "" {
		params.Set("q", fmt.Sprintf(`[[at(document.type,%q)]]`, opts.DocumentType))
	}
	if opts.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(min(opts.PageSize, maxPageSize)))
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Orderings != "" {
		params.Set("orderings", opts.Orderings)
	}
	if len(opts.Fetch) > 0 {
		params.Set("fetch", strings.Join(opts.Fetch, ","))
	}

	return c.search(ctx, params)
}

// QueryAll follows next_page links until the result set is exhausted.
func (c *Client) QueryAll(ctx context.Context, opts QueryOptions) ([]Document, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = maxPageSize
	}
	opts.Page = 1

	resp, err := c.Query(ctx, opts)
	if err != nil {
		return nil, err
	}

	documents := make([]Document, 0, max(resp.TotalResultsSize, len(resp.Results)))
	documents = append(documents, resp.Results...)

	for next := resp.Next(); next != ""; next = resp.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err = c.FetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		documents = append(documents, resp.Results...)
	}

	slog.Debug("Corpus fetched", "type", opts.DocumentType, "documents", len(documents))
	return documents, nil
}

// FetchPage fetches a next_page/prev_page URL exactly as the API returned it.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*SearchResponse, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("page url is empty")
	}

	var resp SearchResponse
	if err := c.getJSON(ctx, c.withToken(pageURL), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetByUID returns the document of the given type with the given UID.
func (c *Client) GetByUID(ctx context.Context, documentType, uid, ref string) (*Document, error) {
	query := fmt.Sprintf(`[[at(my.%s.uid,%q)]]`, documentType, uid)
	return c.getSingle(ctx, query, ref)
}

// GetByID returns the document with the given document ID.
func (c *Client) GetByID(ctx context.Context, id, ref string) (*Document, error) {
	query := fmt.Sprintf(`[[at(document.id,%q)]]`, id)
	return c.getSingle(ctx, query, ref)
}

func (c *Client) getSingle(ctx context.Context, query, ref string) (*Document, error) {
	ref, err := c.resolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	key := ref + "|" + query
	cacheable := c.isMasterRef(ctx, ref)
	if cacheable {
		if doc, ok := c.documents.Get(key); ok {
			return &doc, nil
		}
	}

	params := url.Values{}
	params.Set("ref", ref)
	params.Set("q", query)
	params.Set("pageSize", "1")

	resp, err := c.search(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}

	doc := resp.Results[0]
	if cacheable {
		c.documents.Add(key, doc)
	}
	return &doc, nil
}

func (c *Client) isMasterRef(ctx context.Context, ref string) bool {
	master, err := c.MasterRef(ctx)
	return err == nil && ref == master
}

func (c *Client) resolveRef(ctx context.Context, ref string) (string, error) {
	if ref != "" {
		return ref, nil
	}
	return c.MasterRef(ctx)
}

func (c *Client) search(ctx context.Context, params url.Values) (*SearchResponse, error) {
	if c.accessToken != "" {
		params.Set("access_token", c.accessToken)
	}

	searchURL := *c.endpoint
	searchURL.Path = strings.TrimSuffix(searchURL.Path, "/") + "/documents/search"
	searchURL.RawQuery = params.Encode()

	var resp SearchResponse
	if err := c.getJSON(ctx, searchURL.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// withToken adds the access token to URLs the API handed back to us,
// which do not carry it.
func (c *Client) withToken(rawURL string) string {
	if c.accessToken == "" {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Get("access_token") != "" {
		return rawURL
	}
	query.Set("access_token", c.accessToken)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Message = cmp.Or(payload.Message, payload.Error)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
