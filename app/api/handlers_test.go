package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/spacetraveling/app/database"
	"github.com/lysyi3m/spacetraveling/app/generator"
	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/richtext"
	"github.com/lysyi3m/spacetraveling/app/site"
	"github.com/lysyi3m/spacetraveling/app/tasks"
)

const (
	testAPIKey     = "test-key"
	testMasterRef  = "master-ref"
	testPreviewRef = "preview-ref"
	searchURL      = "https://blog.cdn.prismic.io/api/v2/documents/search"
)

// mockSource pages through an in-memory repository one post per page.
// The preview ref additionally sees a draft post.
type mockSource struct {
	mu       sync.Mutex
	docs     []prismic.Document
	drafts   []prismic.Document
	fetchErr error
}

func (m *mockSource) docsFor(ref string) []prismic.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ref == testPreviewRef {
		return append(append([]prismic.Document(nil), m.drafts...), m.docs...)
	}
	return append([]prismic.Document(nil), m.docs...)
}

func (m *mockSource) page(ref string, page int) *prismic.SearchResponse {
	docs := m.docsFor(ref)
	resp := &prismic.SearchResponse{Page: page}
	if page-1 < len(docs) {
		resp.Results = docs[page-1 : page]
	}
	if page < len(docs) {
		next := searchURL + "?ref=" + ref + "&page=" + strconv.Itoa(page+1)
		resp.NextPage = &next
	}
	return resp
}

func (m *mockSource) Endpoint() *url.URL {
	u, _ := url.Parse("https://blog.cdn.prismic.io/api/v2")
	return u
}

func (m *mockSource) MasterRef(ctx context.Context) (string, error) {
	return testMasterRef, nil
}

func (m *mockSource) Query(ctx context.Context, opts prismic.QueryOptions) (*prismic.SearchResponse, error) {
	return m.page(opts.Ref, 1), nil
}

func (m *mockSource) QueryAll(ctx context.Context, opts prismic.QueryOptions) ([]prismic.Document, error) {
	return m.docsFor(opts.Ref), nil
}

func (m *mockSource) FetchPage(ctx context.Context, pageURL string) (*prismic.SearchResponse, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	page, err := strconv.Atoi(parsed.Query().Get("page"))
	if err != nil {
		return nil, err
	}
	return m.page(parsed.Query().Get("ref"), page), nil
}

func (m *mockSource) GetByUID(ctx context.Context, documentType, uid, ref string) (*prismic.Document, error) {
	for _, doc := range m.docsFor(ref) {
		if doc.UID == uid {
			return &doc, nil
		}
	}
	return nil, prismic.ErrNotFound
}

func (m *mockSource) GetByID(ctx context.Context, id, ref string) (*prismic.Document, error) {
	for _, doc := range m.docsFor(ref) {
		if doc.ID == id {
			return &doc, nil
		}
	}
	return nil, prismic.ErrNotFound
}

// MockScheduler records enqueued tasks without running them
type MockScheduler struct {
	tasks []tasks.TaskInterface
	err   error
}

func (m *MockScheduler) Start()                             {}
func (m *MockScheduler) Stop()                              {}
func (m *MockScheduler) SetInterval(interval time.Duration) {}

func (m *MockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if m.err != nil {
		return m.err
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func testPost(id, uid, title string, day int) prismic.Document {
	published := time.Date(2021, 3, day, 12, 0, 0, 0, time.UTC)
	return prismic.Document{
		ID:                   id,
		UID:                  uid,
		Type:                 "ignite-blog",
		FirstPublicationDate: &published,
		LastPublicationDate:  &published,
		Data: prismic.DocumentData{
			Title:    title,
			Subtitle: title + " subtitle",
			Author:   "Joseph Oliveira",
			Content: []prismic.ContentGroup{{
				Heading: "Proin et varius",
				Body:    richtext.Blocks{{Type: richtext.TypeParagraph, Text: "Lorem ipsum dolor sit amet"}},
			}},
		},
	}
}

type testEnv struct {
	source    *mockSource
	builder   *generator.Builder
	scheduler *MockScheduler
	router    *gin.Engine
	output    string
}

func setupServer(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := database.NewConnection(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Expected no error opening database, got: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Expected no error running migrations, got: %v", err)
	}

	config, err := site.Parse([]byte("title: spacetraveling\nlocale: en\nfeed:\n  enabled: true\n"))
	if err != nil {
		t.Fatal(err)
	}

	source := &mockSource{
		docs: []prismic.Document{
			testPost("doc-1", "first", "Como utilizar Hooks", 20),
			testPost("doc-2", "second", "Criando um app CRA do zero", 19),
			testPost("doc-3", "third", "Mapas com React", 18),
		},
		drafts: []prismic.Document{
			testPost("doc-4", "draft", "Unpublished thoughts", 21),
		},
	}
	builds := database.NewBuildRepository(db)
	pages := database.NewPageRepository(db)
	output := filepath.Join(dir, "public")

	builder, err := generator.NewBuilder(source, builds, pages, config, generator.Config{
		OutputDir: output,
		BaseURL:   "https://blog.example.com",
		Workers:   2,
		Location:  time.UTC,
	})
	if err != nil {
		t.Fatalf("Expected no error creating builder, got: %v", err)
	}

	scheduler := &MockScheduler{}
	handler := NewHandler(builder, source, builds, pages, scheduler, "test")

	return &testEnv{
		source:    source,
		builder:   builder,
		scheduler: scheduler,
		router:    NewServer(handler, apiKey),
		output:    output,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil))
}

func TestGetPosts_ReturnsCursorPage(t *testing.T) {
	env := setupServer(t, "")

	cursor := searchURL + "?ref=" + testMasterRef + "&page=2"
	w := env.get(t, "/api/posts?cursor="+url.QueryEscape(cursor))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp postsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected valid JSON, got: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].UID != "second" {
		t.Fatalf("Expected the second post, got %+v", resp.Items)
	}
	if resp.Items[0].DisplayDate != "19 Mar 2021" {
		t.Errorf("Expected display date 19 Mar 2021, got %q", resp.Items[0].DisplayDate)
	}
	if !strings.Contains(resp.NextCursor, "page=3") {
		t.Errorf("Expected next cursor to point at page 3, got %q", resp.NextCursor)
	}
}

func TestGetPosts_LastPageHasEmptyCursor(t *testing.T) {
	env := setupServer(t, "")

	cursor := searchURL + "?ref=" + testMasterRef + "&page=3"
	w := env.get(t, "/api/posts?cursor="+url.QueryEscape(cursor))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"next_cursor":""`) {
		t.Errorf("Expected empty next cursor, got %s", w.Body.String())
	}
}

func TestGetPosts_InvalidCursor(t *testing.T) {
	env := setupServer(t, "")

	tests := []string{
		"/api/posts",
		"/api/posts?cursor=" + url.QueryEscape("https://evil.example.com/documents/search?page=2"),
		"/api/posts?cursor=" + url.QueryEscape("/documents/search?page=2"),
	}

	for _, target := range tests {
		w := env.get(t, target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %s, got %d", target, w.Code)
		}
	}
}

func TestGetPosts_ContentUnavailable(t *testing.T) {
	env := setupServer(t, "")
	env.source.fetchErr = errors.New("connection refused")

	cursor := searchURL + "?ref=" + testMasterRef + "&page=2"
	w := env.get(t, "/api/posts?cursor="+url.QueryEscape(cursor))

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
}

func TestGetPost_GeneratesOnFirstRequest(t *testing.T) {
	env := setupServer(t, "")

	file := filepath.Join(env.output, "post", "second", "index.html")
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatal("Expected post not to be generated yet")
	}

	w := env.get(t, "/post/second")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Criando um app CRA do zero") {
		t.Error("Expected post title in response")
	}
	if _, err := os.Stat(file); err != nil {
		t.Errorf("Expected post file to be written, got: %v", err)
	}
}

func TestGetPost_UnknownUID(t *testing.T) {
	env := setupServer(t, "")

	for _, target := range []string{"/post/does-not-exist", "/post/draft"} {
		w := env.get(t, target)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404 for %s, got %d", target, w.Code)
		}
	}
}

func TestServeGeneratedSite(t *testing.T) {
	env := setupServer(t, "")

	if _, err := env.builder.Run(context.Background(), generator.ReasonManual); err != nil {
		t.Fatalf("Expected no error building site, got: %v", err)
	}

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "Como utilizar Hooks"},
		{"/post/third", http.StatusOK, "Mapas com React"},
		{"/feed.xml", http.StatusOK, "<rss"},
		{"/sitemap.xml", http.StatusOK, "https://blog.example.com/post/first"},
		{"/styles.css", http.StatusOK, ""},
		{"/missing-page", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		w := env.get(t, tt.path)
		if w.Code != tt.status {
			t.Errorf("Expected status %d for %s, got %d", tt.status, tt.path, w.Code)
			continue
		}
		if tt.body != "" && !strings.Contains(w.Body.String(), tt.body) {
			t.Errorf("Expected %s to contain %q", tt.path, tt.body)
		}
	}
}

func TestGetIndex_BeforeFirstBuild(t *testing.T) {
	env := setupServer(t, "")

	w := env.get(t, "/")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Como utilizar Hooks") {
		t.Error("Expected first post in listing")
	}
}

func TestPreview(t *testing.T) {
	env := setupServer(t, "")

	w := env.get(t, "/api/preview?token="+testPreviewRef+"&documentId=doc-4")

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected status 307, got %d", w.Code)
	}
	if location := w.Header().Get("Location"); location != "/post/draft" {
		t.Errorf("Expected redirect to /post/draft, got %s", location)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == PreviewCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != testPreviewRef {
		t.Fatalf("Expected preview cookie with ref %s, got %+v", testPreviewRef, cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/post/draft", nil)
	req.AddCookie(cookie)
	w = env.do(t, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for draft in preview, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/api/exit-preview") {
		t.Error("Expected exit preview link")
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Error("Expected preview pages not to be cached")
	}
	if _, err := os.Stat(filepath.Join(env.output, "post", "draft")); !os.IsNotExist(err) {
		t.Error("Expected preview not to write files")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = env.do(t, req)
	if !strings.Contains(w.Body.String(), "Unpublished thoughts") {
		t.Error("Expected draft in preview listing")
	}
}

func TestPreview_MissingToken(t *testing.T) {
	env := setupServer(t, "")

	w := env.get(t, "/api/preview?documentId=doc-1")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestPreview_UnknownDocumentRedirectsHome(t *testing.T) {
	env := setupServer(t, "")

	w := env.get(t, "/api/preview?token="+testPreviewRef+"&documentId=nope")

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected status 307, got %d", w.Code)
	}
	if location := w.Header().Get("Location"); location != "/" {
		t.Errorf("Expected redirect to /, got %s", location)
	}
}

func TestExitPreview(t *testing.T) {
	env := setupServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/exit-preview", nil)
	req.AddCookie(&http.Cookie{Name: PreviewCookie, Value: testPreviewRef})
	w := env.do(t, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected status 307, got %d", w.Code)
	}

	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == PreviewCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("Expected preview cookie to be cleared")
	}
}

func TestHealth(t *testing.T) {
	env := setupServer(t, "")

	w := env.get(t, "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Expected valid JSON, got: %v", err)
	}
	if health["version"] != "test" {
		t.Errorf("Expected version test, got %v", health["version"])
	}
}

func TestAdminAPI_Disabled(t *testing.T) {
	env := setupServer(t, "")

	w := env.get(t, "/api/builds")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when admin API is disabled, got %d", w.Code)
	}
}

func TestAdminAPI_Authentication(t *testing.T) {
	env := setupServer(t, testAPIKey)

	w := env.get(t, "/api/builds")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/builds", nil)
	req.Header.Set("X-API-Key", "wrong")
	if w := env.do(t, req); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with wrong key, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/builds", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if w := env.do(t, req); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with bearer key, got %d", w.Code)
	}
}

func TestAdminAPI_Builds(t *testing.T) {
	env := setupServer(t, testAPIKey)

	report, err := env.builder.Run(context.Background(), generator.ReasonManual)
	if err != nil {
		t.Fatalf("Expected no error building site, got: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/builds?limit=5", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	w := env.do(t, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Builds []database.Build   `json:"builds"`
		Total  int                `json:"total"`
		Pages  database.PageStats `json:"pages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected valid JSON, got: %v", err)
	}
	if resp.Total != 1 || resp.Builds[0].ID != report.BuildID {
		t.Errorf("Expected build %s, got %+v", report.BuildID, resp.Builds)
	}
	if resp.Pages.Generated == 0 {
		t.Error("Expected generated pages in stats")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/builds/"+report.BuildID, nil)
	req.Header.Set("X-API-Key", testAPIKey)
	if w := env.do(t, req); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for build details, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/builds/unknown", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	if w := env.do(t, req); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown build, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/builds?limit=abc", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	if w := env.do(t, req); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid limit, got %d", w.Code)
	}
}

func TestAdminAPI_Revalidate(t *testing.T) {
	env := setupServer(t, testAPIKey)

	req := httptest.NewRequest(http.MethodPost, "/api/revalidate", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	if w := env.do(t, req); w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/revalidate/second", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	if w := env.do(t, req); w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}

	if len(env.scheduler.tasks) != 2 {
		t.Fatalf("Expected 2 enqueued tasks, got %d", len(env.scheduler.tasks))
	}
	if env.scheduler.tasks[0].GetType() != tasks.TaskTypeBuildSite {
		t.Errorf("Expected build_site task, got %s", env.scheduler.tasks[0].GetType())
	}
	if env.scheduler.tasks[1].GetType() != tasks.TaskTypeBuildPost || env.scheduler.tasks[1].GetTarget() != "second" {
		t.Errorf("Expected build_post task for second, got %s %s", env.scheduler.tasks[1].GetType(), env.scheduler.tasks[1].GetTarget())
	}
}

func TestAdminAPI_RevalidateQueueFull(t *testing.T) {
	env := setupServer(t, testAPIKey)
	env.scheduler.err = errors.New("task queue is full")

	req := httptest.NewRequest(http.MethodPost, "/api/revalidate", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	if w := env.do(t, req); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}
