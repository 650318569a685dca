package site

import (
	"time"

	"golang.org/x/text/language"
)

type Config struct {
	Title        string       `yaml:"title"`
	Description  string       `yaml:"description"`
	Locale       string       `yaml:"locale"`
	DocumentType string       `yaml:"document_type"`
	PageSize     int          `yaml:"page_size"`
	Ordering     string       `yaml:"ordering"`
	Revalidate   int          `yaml:"revalidate"` // seconds
	Feed         FeedSettings `yaml:"feed"`

	Language language.Tag `yaml:"-"`
}

type FeedSettings struct {
	Enabled  bool `yaml:"enabled"`
	MaxItems int  `yaml:"max_items"`
}

func (c *Config) RevalidateInterval() time.Duration {
	return time.Duration(c.Revalidate) * time.Second
}
