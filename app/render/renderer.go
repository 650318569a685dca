package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/lysyi3m/spacetraveling/app/blog"
	"github.com/lysyi3m/spacetraveling/app/richtext"
	"github.com/lysyi3m/spacetraveling/app/site"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// Funcs are replaced per Renderer; these only let the templates parse.
var baseTemplates = template.Must(template.New("site").Funcs(template.FuncMap{
	"t":           func(string, ...any) string { return "" },
	"date":        func(*time.Time) string { return "" },
	"titleDate":   func(*time.Time) string { return "" },
	"edited":      func(*blog.PostDetail) string { return "" },
	"readingTime": func(int) string { return "" },
	"richtext":    func(richtext.Blocks) template.HTML { return "" },
}).ParseFS(templateFS, "templates/*.html"))

type Page struct {
	Site    *site.Config
	Lang    string
	Title   string
	Preview bool
}

type IndexData struct {
	Page
	Posts      []blog.PostSummary
	NextCursor string
}

type PostData struct {
	Page
	Post *blog.PostDetail
}

// Renderer produces the HTML pages of one site configuration.
type Renderer struct {
	site      *site.Config
	locale    *Locale
	templates *template.Template
}

// NewRenderer builds a renderer showing dates in location, or time.Local when nil.
func NewRenderer(config *site.Config, location *time.Location) (*Renderer, error) {
	locale := NewLocale(config.Language, location)

	templates, err := baseTemplates.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to clone templates: %w", err)
	}
	templates.Funcs(template.FuncMap{
		"t":           locale.T,
		"date":        locale.Date,
		"titleDate":   locale.TitleDate,
		"edited":      editedLine(locale),
		"readingTime": locale.ReadingTime,
		"richtext": func(blocks richtext.Blocks) template.HTML {
			return template.HTML(blocks.HTML())
		},
	})

	return &Renderer{
		site:      config,
		locale:    locale,
		templates: templates,
	}, nil
}

func (r *Renderer) Locale() *Locale {
	return r.locale
}

func (r *Renderer) Site() *site.Config {
	return r.site
}

func (r *Renderer) page(title string, preview bool) Page {
	return Page{
		Site:    r.site,
		Lang:    r.site.Language.String(),
		Title:   title,
		Preview: preview,
	}
}

func (r *Renderer) RenderIndex(w io.Writer, feed blog.FeedPage, preview bool) error {
	return r.execute(w, "index", IndexData{
		Page:       r.page("", preview),
		Posts:      feed.Items,
		NextCursor: feed.NextCursor,
	})
}

func (r *Renderer) RenderPost(w io.Writer, post *blog.PostDetail, preview bool) error {
	return r.execute(w, "post", PostData{
		Page: r.page(post.Title, preview),
		Post: post,
	})
}

func (r *Renderer) RenderNotFound(w io.Writer) error {
	return r.execute(w, "notfound", r.page(r.locale.T("Post not found"), false))
}

// execute renders into a buffer first so a failed template writes nothing.
func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Assets returns the static files shipped with every site.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// editedLine is shown only when the post changed after it was first published.
func editedLine(locale *Locale) func(*blog.PostDetail) string {
	return func(post *blog.PostDetail) string {
		if post == nil || post.LastPublicationDate == nil {
			return ""
		}
		if post.FirstPublicationDate != nil && !post.LastPublicationDate.After(*post.FirstPublicationDate) {
			return ""
		}
		return locale.Edited(post.LastPublicationDate)
	}
}
