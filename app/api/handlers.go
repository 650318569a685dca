package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/spacetraveling/app/blog"
	"github.com/lysyi3m/spacetraveling/app/database"
	"github.com/lysyi3m/spacetraveling/app/generator"
	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/tasks"
)

const (
	defaultBuildsLimit = 20
	maxBuildsLimit     = 100
)

func NewHandler(siteGenerator SiteGenerator, documents DocumentLookup,
	buildRepo database.BuildRepository, pageRepo database.PageRepository,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		generator: siteGenerator,
		documents: documents,
		buildRepo: buildRepo,
		pageRepo:  pageRepo,
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetIndex(c *gin.Context) {
	if ref, ok := previewRef(c); ok {
		h.renderDynamic(c, func(buf *bytes.Buffer) error {
			return h.generator.RenderIndex(c.Request.Context(), buf, ref, true)
		})
		return
	}

	file := filepath.Join(h.generator.OutputDir(), "index.html")
	if fileExists(file) {
		c.File(file)
		return
	}

	// Nothing generated yet
	h.renderDynamic(c, func(buf *bytes.Buffer) error {
		return h.generator.RenderIndex(c.Request.Context(), buf, "", false)
	})
}

func (h *Handler) GetPost(c *gin.Context) {
	uid := c.Param("uid")

	if ref, ok := previewRef(c); ok {
		h.renderDynamic(c, func(buf *bytes.Buffer) error {
			return h.generator.RenderPost(c.Request.Context(), buf, uid, ref, true)
		})
		return
	}

	file := h.generator.PostFile(uid)
	if file == "" {
		h.notFound(c)
		return
	}
	if fileExists(file) {
		c.File(file)
		return
	}

	if err := h.generator.BuildPost(c.Request.Context(), uid, generator.ReasonFallback); err != nil {
		h.contentError(c, "build_post", err)
		return
	}

	c.File(file)
}

// GetPosts returns the page a listing cursor points to.
func (h *Handler) GetPosts(c *gin.Context) {
	cursor := c.Query("cursor")

	page, err := h.generator.Loader().LoadNextPage(c.Request.Context(), cursor)
	if err != nil {
		switch {
		case errors.Is(err, blog.ErrInvalidCursor):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor", "details": err.Error()})
		default:
			slog.Error("Content source error", "operation", "load_next_page", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Content unavailable"})
		}
		return
	}

	locale := h.generator.Renderer().Locale()
	items := make([]postItem, 0, len(page.Items))
	for _, summary := range page.Items {
		items = append(items, postItem{
			PostSummary: summary,
			DisplayDate: locale.TitleDate(summary.FirstPublicationDate),
		})
	}

	c.Header("X-Posts-Count", strconv.Itoa(len(items)))
	c.JSON(http.StatusOK, postsResponse{
		Items:      items,
		NextCursor: page.NextCursor,
	})
}

// StartPreview enters preview mode for the given ref and redirects to the previewed post.
func (h *Handler) StartPreview(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing preview token"})
		return
	}

	location := "/"
	if documentID := c.Query("documentId"); documentID != "" {
		doc, err := h.documents.GetByID(c.Request.Context(), documentID, token)
		switch {
		case errors.Is(err, prismic.ErrNotFound):
			slog.Warn("Preview document not found", "document_id", documentID)
		case err != nil:
			slog.Error("Content source error", "operation", "get_preview_document", "document_id", documentID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Content unavailable"})
			return
		case doc.UID != "":
			location = generator.PostPath(doc.UID)
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(PreviewCookie, token, previewMaxAge, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, location)
}

func (h *Handler) ExitPreview(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(PreviewCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// ServeStatic serves generated files and falls back to the not found page.
func (h *Handler) ServeStatic(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusNotFound)
		return
	}

	name := path.Clean("/" + c.Request.URL.Path)
	file := filepath.Join(h.generator.OutputDir(), filepath.FromSlash(name))
	if info, err := os.Stat(file); err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
	}

	if fileExists(file) {
		c.File(file)
		return
	}

	h.notFound(c)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if builds, err := h.buildRepo.GetRecentBuilds(1); err == nil && len(builds) > 0 {
		health["last_build"] = builds[0]
	}

	if stats, err := h.pageRepo.GetPageStats(); err == nil {
		health["pages"] = stats
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListBuilds(c *gin.Context) {
	limit := defaultBuildsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(parsed, maxBuildsLimit)
	}

	builds, err := h.buildRepo.GetRecentBuilds(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_builds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := map[string]interface{}{
		"builds": builds,
		"total":  len(builds),
	}

	if stats, err := h.pageRepo.GetPageStats(); err == nil {
		response["pages"] = stats
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIGetBuild(c *gin.Context) {
	id := c.Param("id")

	build, err := h.buildRepo.GetBuild(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_build", "build_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if build == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Build not found"})
		return
	}

	c.JSON(http.StatusOK, build)
}

func (h *Handler) APIRevalidateSite(c *gin.Context) {
	task := tasks.NewBuildSiteTask(generator.ReasonManual, h.generator)
	h.enqueue(c, task, gin.H{"target": "site"})
}

func (h *Handler) APIRevalidatePost(c *gin.Context) {
	uid := c.Param("uid")
	if h.generator.PostFile(uid) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post uid"})
		return
	}

	task := tasks.NewBuildPostTask(uid, generator.ReasonManual, h.generator)
	h.enqueue(c, task, gin.H{"target": uid})
}

func (h *Handler) enqueue(c *gin.Context, task tasks.TaskInterface, response gin.H) {
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing task", "type", string(task.GetType()), "target", task.GetTarget(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue task",
			"details": err.Error(),
		})
		return
	}

	response["success"] = true
	response["task"] = gin.H{
		"id":   task.GetID(),
		"type": task.GetType(),
	}
	c.JSON(http.StatusAccepted, response)
}

func (h *Handler) renderDynamic(c *gin.Context, render func(buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.contentError(c, "render", err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handler) contentError(c *gin.Context, operation string, err error) {
	if errors.Is(err, blog.ErrPostNotFound) {
		h.notFound(c)
		return
	}

	slog.Error("Content source error", "operation", operation, "path", c.Request.URL.Path, "error", err)
	c.Data(http.StatusBadGateway, "text/plain; charset=utf-8", []byte("Content temporarily unavailable"))
}

func (h *Handler) notFound(c *gin.Context) {
	file := filepath.Join(h.generator.OutputDir(), "404.html")
	if data, err := os.ReadFile(file); err == nil {
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", data)
		return
	}

	var buf bytes.Buffer
	if err := h.generator.RenderNotFound(&buf); err != nil {
		slog.Error("Failed to render not found page", "error", err)
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusNotFound, "text/html; charset=utf-8", buf.Bytes())
}

func previewRef(c *gin.Context) (string, bool) {
	ref, err := c.Cookie(PreviewCookie)
	if err != nil || ref == "" {
		return "", false
	}
	return ref, true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
