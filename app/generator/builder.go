package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lysyi3m/spacetraveling/app/blog"
	"github.com/lysyi3m/spacetraveling/app/database"
	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/render"
	"github.com/lysyi3m/spacetraveling/app/site"
)

// state is everything derived from one site configuration.
type state struct {
	site     *site.Config
	loader   *blog.Loader
	corpus   *blog.Corpus
	resolver *blog.Resolver
	renderer *render.Renderer

	revalidate time.Duration
	configKey  string // part of every post fingerprint
}

// Builder generates the static site from the content source.
type Builder struct {
	source blog.ContentSource
	builds database.BuildRepository
	pages  database.PageRepository

	outputDir string
	baseURL   string
	workers   int
	location  *time.Location
	now       func() time.Time

	state     atomic.Pointer[state]
	runMu     sync.Mutex
	postGroup singleflight.Group
}

func NewBuilder(source blog.ContentSource, builds database.BuildRepository, pages database.PageRepository,
	config *site.Config, cfg Config) (*Builder, error) {
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	b := &Builder{
		source:    source,
		builds:    builds,
		pages:     pages,
		outputDir: cfg.OutputDir,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		workers:   max(cfg.Workers, 1),
		location:  cfg.Location,
		now:       time.Now,
	}

	if err := b.Reconfigure(config); err != nil {
		return nil, err
	}
	return b, nil
}

// Reconfigure switches to a new site configuration. Runs in progress keep the old one.
func (b *Builder) Reconfigure(config *site.Config) error {
	renderer, err := render.NewRenderer(config, b.location)
	if err != nil {
		return err
	}

	configKey, err := b.configKey(config)
	if err != nil {
		return err
	}

	opts := config.BlogOptions()
	corpus := blog.NewCorpus(b.source, opts)

	b.state.Store(&state{
		site:       config,
		loader:     blog.NewLoader(b.source, opts),
		corpus:     corpus,
		resolver:   blog.NewResolver(b.source, corpus, opts),
		renderer:   renderer,
		revalidate: config.RevalidateInterval(),
		configKey:  configKey,
	})
	return nil
}

// configKey identifies the site settings post pages are rendered with, so a
// configuration change regenerates every post.
func (b *Builder) configKey(config *site.Config) (string, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to encode site config: %w", err)
	}

	hash := sha256.New()
	hash.Write(data)
	if b.location != nil {
		hash.Write([]byte(b.location.String()))
	}
	hash.Write([]byte(b.baseURL))
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (b *Builder) Loader() *blog.Loader {
	return b.state.Load().loader
}

func (b *Builder) Renderer() *render.Renderer {
	return b.state.Load().renderer
}

func (b *Builder) OutputDir() string {
	return b.outputDir
}

// Run regenerates the whole site at the current master ref. Posts that fail
// are recorded and do not stop the others. Only one Run executes at a time.
func (b *Builder) Run(ctx context.Context, reason string) (*Report, error) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	st := b.state.Load()
	started := b.now()
	report := &Report{BuildID: uuid.NewString()}

	if err := b.builds.CreateBuild(report.BuildID, reason, started); err != nil {
		return nil, err
	}

	err := b.run(ctx, st, report)
	report.Duration = b.now().Sub(started)
	b.finish(report, err)

	if err != nil {
		return report, err
	}

	slog.Info("Site generated", "build_id", report.BuildID, "reason", reason, "ref", report.Ref,
		"generated", report.Generated, "skipped", report.Skipped, "failed", report.Failed, "duration", report.Duration)
	return report, nil
}

func (b *Builder) run(ctx context.Context, st *state, report *Report) error {
	ref, err := b.source.MasterRef(ctx)
	if err != nil {
		return fmt.Errorf("%w: resolve master ref: %w", blog.ErrContentUnavailable, err)
	}
	report.Ref = ref

	docs, err := st.corpus.Documents(ctx, ref)
	if err != nil {
		return err
	}

	if err := b.buildIndex(ctx, st, ref, report.BuildID); err != nil {
		return err
	}

	g, postCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for idx, doc := range docs {
		g.Go(func() error {
			outcome, err := b.buildPost(postCtx, st, docs, idx, ref, report.BuildID, false)
			if err != nil {
				slog.Warn("Post generation failed", "uid", doc.UID, "error", err)
			}
			report.record(doc.UID, outcome, err)
			// A failed post is recorded, the remaining posts still build
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	uids := make([]string, 0, len(docs))
	for _, doc := range docs {
		uids = append(uids, doc.UID)
	}
	if missing, err := b.pages.MarkMissing(uids, report.BuildID); err != nil {
		slog.Warn("Failed to mark unpublished pages", "error", err)
	} else if missing > 0 {
		slog.Info("Unpublished posts detected", "count", missing)
		b.removeUnpublished(uids)
	}

	if err := b.writeSiteFiles(st, docs); err != nil {
		return err
	}

	return ctx.Err()
}

func (b *Builder) finish(report *Report, runErr error) {
	result := database.BuildResult{
		Status:         database.BuildStatusSucceeded,
		Ref:            report.Ref,
		PagesGenerated: report.Generated,
		PagesSkipped:   report.Skipped,
		PagesFailed:    report.Failed,
	}

	switch {
	case runErr != nil:
		result.Status = database.BuildStatusFailed
		result.Error = runErr.Error()
	case report.Failed > 0:
		result.Status = database.BuildStatusPartial
		result.Error = summarizeFailures(report.Failures)
	}

	if err := b.builds.FinishBuild(report.BuildID, result, b.now()); err != nil {
		slog.Error("Failed to record build result", "build_id", report.BuildID, "error", err)
	}
}

// BuildIndex regenerates the listing page at the current master ref.
func (b *Builder) BuildIndex(ctx context.Context) error {
	return b.buildIndex(ctx, b.state.Load(), "", "")
}

func (b *Builder) buildIndex(ctx context.Context, st *state, ref, buildID string) error {
	page, err := st.loader.LoadInitialPage(ctx, ref)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := st.renderer.RenderIndex(&buf, page, false); err != nil {
		return err
	}
	if err := b.writePage("/", buf.Bytes()); err != nil {
		return err
	}

	return b.pages.UpsertPage(database.Page{
		Path:        "/",
		GeneratedAt: b.now(),
		BuildID:     buildID,
		Status:      database.PageStatusGenerated,
	})
}

// BuildPost generates a single post at the current master ref regardless of
// its previous state. Concurrent calls for the same UID share one generation.
func (b *Builder) BuildPost(ctx context.Context, uid, reason string) error {
	if !validUID(uid) {
		return fmt.Errorf("%w: %q", blog.ErrPostNotFound, uid)
	}

	// The shared generation outlives any single caller; each caller stops
	// waiting on its own context.
	buildCtx := context.WithoutCancel(ctx)
	results := b.postGroup.DoChan(uid, func() (any, error) {
		return nil, b.buildSinglePost(buildCtx, uid, reason)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-results:
		return res.Err
	}
}

func (b *Builder) buildSinglePost(ctx context.Context, uid, reason string) error {
	st := b.state.Load()
	started := b.now()

	ref, err := b.source.MasterRef(ctx)
	if err != nil {
		return fmt.Errorf("%w: resolve master ref: %w", blog.ErrContentUnavailable, err)
	}

	docs, err := st.corpus.Documents(ctx, ref)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(docs, func(d prismic.Document) bool { return d.UID == uid })
	if idx < 0 {
		return fmt.Errorf("%w: %s", blog.ErrPostNotFound, uid)
	}

	report := &Report{BuildID: uuid.NewString(), Ref: ref}
	if err := b.builds.CreateBuild(report.BuildID, reason, started); err != nil {
		return err
	}

	outcome, err := b.buildPost(ctx, st, docs, idx, ref, report.BuildID, true)
	report.record(uid, outcome, err)
	report.Duration = b.now().Sub(started)
	b.finish(report, nil)

	if err != nil {
		return err
	}
	slog.Info("Post generated", "uid", uid, "reason", reason, "build_id", report.BuildID, "duration", report.Duration)
	return nil
}

// buildPost renders the post at docs[idx]. Unless forced, a post whose
// inputs are unchanged and whose page is fresh is skipped.
func (b *Builder) buildPost(ctx context.Context, st *state, docs []prismic.Document, idx int, ref, buildID string, force bool) (postOutcome, error) {
	doc := docs[idx]
	if !validUID(doc.UID) {
		return postFailed, fmt.Errorf("invalid uid %q", doc.UID)
	}

	fingerprint := postFingerprint(docs, idx, st.configKey)
	if !force && b.isFresh(st, doc.UID, fingerprint) {
		return postSkipped, nil
	}

	detail, err := st.resolver.Resolve(ctx, doc.UID, ref)
	if err != nil {
		status := database.PageStatusFailed
		if errors.Is(err, blog.ErrPostNotFound) {
			status = database.PageStatusMissing
		}
		b.recordPage(doc.UID, doc.LastPublicationDate, "", buildID, status, err)
		return postFailed, err
	}

	var buf bytes.Buffer
	if err := st.renderer.RenderPost(&buf, detail, false); err != nil {
		b.recordPage(doc.UID, doc.LastPublicationDate, "", buildID, database.PageStatusFailed, err)
		return postFailed, err
	}
	if err := b.writePage(PostPath(doc.UID), buf.Bytes()); err != nil {
		b.recordPage(doc.UID, doc.LastPublicationDate, "", buildID, database.PageStatusFailed, err)
		return postFailed, err
	}

	b.recordPage(doc.UID, doc.LastPublicationDate, fingerprint, buildID, database.PageStatusGenerated, nil)
	return postGenerated, nil
}

func (b *Builder) isFresh(st *state, uid, fingerprint string) bool {
	record, err := b.pages.GetPage(PostPath(uid))
	if err != nil {
		slog.Warn("Failed to read page record", "uid", uid, "error", err)
		return false
	}
	if record == nil || record.Status != database.PageStatusGenerated || record.Fingerprint != fingerprint {
		return false
	}
	if st.revalidate > 0 && b.now().Sub(record.GeneratedAt) >= st.revalidate {
		return false
	}
	return fileExists(b.PostFile(uid))
}

func (b *Builder) recordPage(uid string, lastPublication *time.Time, fingerprint, buildID, status string, cause error) {
	page := database.Page{
		Path:                PostPath(uid),
		UID:                 uid,
		LastPublicationDate: lastPublication,
		Fingerprint:         fingerprint,
		GeneratedAt:         b.now(),
		BuildID:             buildID,
		Status:              status,
	}
	if cause != nil {
		page.Error = cause.Error()
	}
	if err := b.pages.UpsertPage(page); err != nil {
		slog.Warn("Failed to record page", "uid", uid, "error", err)
	}
}

// RenderIndex renders the listing at ref without writing it, for preview.
func (b *Builder) RenderIndex(ctx context.Context, w io.Writer, ref string, preview bool) error {
	st := b.state.Load()
	page, err := st.loader.LoadInitialPage(ctx, ref)
	if err != nil {
		return err
	}
	return st.renderer.RenderIndex(w, page, preview)
}

// RenderPost renders a post at ref without writing it, for preview.
func (b *Builder) RenderPost(ctx context.Context, w io.Writer, uid, ref string, preview bool) error {
	st := b.state.Load()
	detail, err := st.resolver.Resolve(ctx, uid, ref)
	if err != nil {
		return err
	}
	return st.renderer.RenderPost(w, detail, preview)
}

func (b *Builder) RenderNotFound(w io.Writer) error {
	return b.state.Load().renderer.RenderNotFound(w)
}

func (b *Builder) writeSiteFiles(st *state, docs []prismic.Document) error {
	baseURL := b.baseURL

	entries := []render.SitemapEntry{{Path: "/"}}
	for _, doc := range docs {
		entries = append(entries, render.SitemapEntry{Path: PostPath(doc.UID), LastMod: doc.LastPublicationDate})
	}
	if err := b.writeFile("sitemap.xml", []byte(render.Sitemap(baseURL, entries))); err != nil {
		return err
	}

	if st.site.Feed.Enabled {
		syndication, err := st.renderer.Feeds(docs, baseURL, b.now())
		if err != nil {
			return err
		}
		if count, err := render.CheckFeed(syndication.RSS); err != nil {
			return fmt.Errorf("generated RSS is invalid: %w", err)
		} else {
			slog.Debug("Feed generated", "items", count)
		}
		if err := b.writeFile("feed.xml", []byte(syndication.RSS)); err != nil {
			return err
		}
		if err := b.writeFile("atom.xml", []byte(syndication.Atom)); err != nil {
			return err
		}
	}

	var notFound bytes.Buffer
	if err := st.renderer.RenderNotFound(&notFound); err != nil {
		return err
	}
	if err := b.writeFile("404.html", notFound.Bytes()); err != nil {
		return err
	}

	return b.copyAssets(render.Assets())
}

// removeUnpublished deletes generated post directories whose UID left the corpus.
func (b *Builder) removeUnpublished(published []string) {
	keep := make(map[string]bool, len(published))
	for _, uid := range published {
		keep[uid] = true
	}

	for _, uid := range listPostDirs(b.outputDir) {
		if keep[uid] {
			continue
		}
		if err := removePostDir(b.outputDir, uid); err != nil {
			slog.Warn("Failed to remove unpublished post", "uid", uid, "error", err)
		}
	}
}

// postFingerprint identifies everything a post page is rendered from that
// the builder already knows: site settings, its own revision and its neighbours.
func postFingerprint(docs []prismic.Document, idx int, configKey string) string {
	doc := docs[idx]
	previous, next := blog.Neighbors(docs, idx)

	var sb strings.Builder
	sb.WriteString(configKey)
	sb.WriteByte('|')
	sb.WriteString(doc.UID)
	sb.WriteByte('|')
	if doc.LastPublicationDate != nil {
		sb.WriteString(doc.LastPublicationDate.UTC().Format(time.RFC3339))
	}
	for _, neighbor := range []*blog.Neighbor{previous, next} {
		sb.WriteByte('|')
		if neighbor != nil {
			sb.WriteString(neighbor.UID + "\x00" + neighbor.Title)
		}
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

func summarizeFailures(failures map[string]string) string {
	uids := make([]string, 0, len(failures))
	for uid := range failures {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	parts := make([]string, 0, len(uids))
	for _, uid := range uids {
		parts = append(parts, uid+": "+failures[uid])
	}
	return strings.Join(parts, "; ")
}
