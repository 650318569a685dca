package blog

const (
	DefaultDocumentType = "ignite-blog"
	DefaultPageSize     = 1
	DefaultOrdering     = "[document.first_publication_date desc]"
)

// Options selects which documents form the blog and in which order.
type Options struct {
	DocumentType string
	PageSize     int
	Ordering     string
}

func (o Options) withDefaults() Options {
	if o.DocumentType == "" {
		o.DocumentType = DefaultDocumentType
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Ordering == "" {
		o.Ordering = DefaultOrdering
	}
	return o
}

// summaryFields limits listing queries to the fields a PostSummary needs.
func (o Options) summaryFields() []string {
	return []string{
		o.DocumentType + ".title",
		o.DocumentType + ".subtitle",
		o.DocumentType + ".author",
	}
}
