package cfg

const (
	CommandBuild  = "build"
	CommandServe  = "serve"
	CommandBrowse = "browse"
)

type Cfg struct {
	Command string

	// Content source
	PrismicEndpoint string
	PrismicToken    string
	HTTPTimeout     int

	// Site generation
	SiteConfig  string
	OutputDir   string
	DBPath      string
	WorkerCount int

	// HTTP server
	Port         string
	BaseUrl      string
	APIAccessKey string
	Watch        bool

	// Terminal browser
	BrowseAll bool
	BrowseRef string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
