package api

import (
	"context"
	"io"

	"github.com/lysyi3m/spacetraveling/app/blog"
	"github.com/lysyi3m/spacetraveling/app/database"
	"github.com/lysyi3m/spacetraveling/app/generator"
	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/render"
	"github.com/lysyi3m/spacetraveling/app/tasks"
)

// PreviewCookie holds the ref of the content version being previewed.
const PreviewCookie = "io.prismic.preview"

const previewMaxAge = 30 * 60

type SiteGenerator interface {
	tasks.SiteBuilder

	Loader() *blog.Loader
	Renderer() *render.Renderer
	OutputDir() string
	PostFile(uid string) string
	RenderIndex(ctx context.Context, w io.Writer, ref string, preview bool) error
	RenderPost(ctx context.Context, w io.Writer, uid, ref string, preview bool) error
	RenderNotFound(w io.Writer) error
}

var _ SiteGenerator = (*generator.Builder)(nil)

// DocumentLookup resolves the document a preview session starts from.
type DocumentLookup interface {
	GetByID(ctx context.Context, id, ref string) (*prismic.Document, error)
}

var _ DocumentLookup = (*prismic.Client)(nil)

type Handler struct {
	generator SiteGenerator
	documents DocumentLookup
	buildRepo database.BuildRepository
	pageRepo  database.PageRepository
	scheduler tasks.TaskSchedulerInterface
	version   string
}

type postItem struct {
	blog.PostSummary
	DisplayDate string `json:"display_date"`
}

type postsResponse struct {
	Items      []postItem `json:"items"`
	NextCursor string     `json:"next_cursor"`
}
