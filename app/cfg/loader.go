package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Content source
	PrismicEndpoint string `long:"prismic-endpoint" env:"PRISMIC_API_ENDPOINT" description:"Prismic repository API endpoint (e.g., https://blog.cdn.prismic.io/api/v2)"`
	PrismicToken    string `long:"prismic-token" env:"PRISMIC_ACCESS_TOKEN" description:"Prismic access token for private repositories"`
	HTTPTimeout     int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"15" description:"Content API request timeout in seconds"`

	// Site generation
	SiteConfig  string `long:"site-config" env:"SITE_CONFIG" default:"./site.yml" description:"Site configuration file"`
	OutputDir   string `long:"output-dir" env:"OUTPUT_DIR" default:"./public" description:"Directory the static site is written to"`
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/spacetraveling.db" description:"SQLite database file for build history"`
	WorkerCount int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of posts generated in parallel"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"3000" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL of the site (e.g., https://blog.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the admin endpoints (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" description:"User agent string for content API requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/Sao_Paulo)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Build  buildCommand  `command:"build" description:"Generate the static site once and exit"`
	Serve  serveCommand  `command:"serve" description:"Serve the site and regenerate it in the background"`
	Browse browseCommand `command:"browse" description:"Page through the post listing in the terminal"`
}

type buildCommand struct{}

type serveCommand struct {
	Watch bool `long:"watch" description:"Regenerate the site when the site configuration changes"`
}

type browseCommand struct {
	All bool   `long:"all" description:"Print every page without prompting"`
	Ref string `long:"ref" description:"Content version ref to browse instead of the published one"`
}

var globalCfg *Cfg

// ErrHelp is returned when help output was requested and printed.
var ErrHelp = errors.New("help requested")

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. Without a command it serves.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, ErrHelp
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	command := CommandServe
	if parser.Active != nil {
		command = parser.Active.Name
	}

	cfg := &Cfg{
		Command:         command,
		PrismicEndpoint: raw.PrismicEndpoint,
		PrismicToken:    raw.PrismicToken,
		HTTPTimeout:     raw.HTTPTimeout,
		SiteConfig:      raw.SiteConfig,
		OutputDir:       raw.OutputDir,
		DBPath:          raw.DBPath,
		WorkerCount:     raw.WorkerCount,
		Port:            raw.Port,
		BaseUrl:         raw.BaseUrl,
		APIAccessKey:    raw.APIAccessKey,
		Watch:           raw.Serve.Watch,
		BrowseAll:       raw.Browse.All,
		BrowseRef:       raw.Browse.Ref,
		UserAgent:       cmp.Or(raw.UserAgent, "spacetraveling/"+GetVersion()),
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.PrismicEndpoint == "" {
		return fmt.Errorf("prismic endpoint is required (--prismic-endpoint or PRISMIC_API_ENDPOINT)")
	}
	endpoint, err := url.Parse(cfg.PrismicEndpoint)
	if err != nil || (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		return fmt.Errorf("prismic endpoint %q must be an absolute http(s) URL", cfg.PrismicEndpoint)
	}

	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if cfg.HTTPTimeout < 1 {
		return fmt.Errorf("http timeout must be at least 1 second")
	}

	return nil
}

func (c *Cfg) RequestTimeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			slog.Debug("Timezone configured", "timezone", timezone)
		}
	}
	return nil
}
