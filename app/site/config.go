package site

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/spacetraveling/app/blog"
)

const (
	defaultTitle      = "spacetraveling"
	defaultLocale     = "pt-BR"
	defaultRevalidate = 24 * 60 * 60
	defaultFeedItems  = 20
	maxPageSize       = 100
)

// Store keeps the last valid site configuration read from disk.
type Store struct {
	path    string
	current *Config
	mu      sync.RWMutex
}

func NewStore(path string) *Store {
	return &Store{
		path:    path,
		current: Default(),
	}
}

// Default is the configuration used when no site file exists.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	config.Language = language.MustParse(config.Locale)
	return config
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the site file. A missing file keeps the defaults; an invalid
// file is rejected and the previous configuration stays active.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Site configuration not found, using defaults", "path", s.path)
		return s.Get(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid site config %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.current = config
	s.mu.Unlock()

	slog.Debug("Site configuration loaded", "path", s.path, "locale", config.Locale, "document_type", config.DocumentType, "page_size", config.PageSize)
	return config, nil
}

func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Parse decodes, defaults and validates a site file.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Title == "" {
		config.Title = defaultTitle
	}
	if config.Locale == "" {
		config.Locale = defaultLocale
	}
	if config.DocumentType == "" {
		config.DocumentType = blog.DefaultDocumentType
	}
	if config.PageSize == 0 {
		config.PageSize = blog.DefaultPageSize
	}
	if config.Ordering == "" {
		config.Ordering = blog.DefaultOrdering
	}
	if config.Revalidate == 0 {
		config.Revalidate = defaultRevalidate
	}
	if config.Feed.MaxItems == 0 {
		config.Feed.MaxItems = defaultFeedItems
	}
}

func validate(config *Config) error {
	tag, err := language.Parse(config.Locale)
	if err != nil {
		return fmt.Errorf("invalid locale %q: %w", config.Locale, err)
	}
	config.Language = tag

	if config.PageSize < 1 || config.PageSize > maxPageSize {
		return fmt.Errorf("page size must be between 1 and %d", maxPageSize)
	}

	nonNegativeFields := map[string]int{
		"revalidate":     config.Revalidate,
		"feed max items": config.Feed.MaxItems,
	}
	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if !strings.HasPrefix(config.Ordering, "[") || !strings.HasSuffix(config.Ordering, "]") {
		return fmt.Errorf("ordering %q must be a bracketed list of fields", config.Ordering)
	}

	return nil
}

// BlogOptions selects the documents and order used by the feed and resolver.
func (c *Config) BlogOptions() blog.Options {
	return blog.Options{
		DocumentType: c.DocumentType,
		PageSize:     c.PageSize,
		Ordering:     c.Ordering,
	}
}
