// Package config defines colloquium source profiles.
//
// A Source bundles everything one department instantiation needs: where the
// listing page and feed live, how listing fields are located in the markup,
// which timezone and talk length apply, how titles are filtered and how the
// deduplication key is derived. Built-in profiles cover the known departments;
// a YAML or TOML file can add sources or override built-ins by name.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
)

const (
	DefaultDuration = 60 * time.Minute
	DefaultLocator  = "nav a, ul a, .menu a"
)

// FieldRule locates one listing field.
type FieldRule struct {
	Selector string `yaml:"selector" toml:"selector"` // relative to the listing; empty means the listing itself
	Scope    string `yaml:"scope" toml:"scope"`       // "listing" (default) or "detail"
	Attr     string `yaml:"attr" toml:"attr"`         // read an attribute instead of text
	Node     *int   `yaml:"node" toml:"node"`         // nth non-empty direct text node, negative counts from the end
	Pattern  string `yaml:"pattern" toml:"pattern"`   // regexp, first capture group is the value
	Markup   bool   `yaml:"markup" toml:"markup"`     // match Pattern against inner HTML instead of text
}

// IsZero reports whether the rule was left unset
func (r FieldRule) IsZero() bool {
	return r.Selector == "" && r.Attr == "" && r.Node == nil && r.Pattern == ""
}

// ListingConfig describes where listing fields live on a page.
type ListingConfig struct {
	Item   string `yaml:"item" toml:"item"`     // one match per listing
	Detail string `yaml:"detail" toml:"detail"` // sibling following each item, e.g. dd after dt

	Title       FieldRule `yaml:"title" toml:"title"`
	Link        FieldRule `yaml:"link" toml:"link"`
	Date        FieldRule `yaml:"date" toml:"date"`
	Time        FieldRule `yaml:"time" toml:"time"`
	Speaker     FieldRule `yaml:"speaker" toml:"speaker"`
	SpeakerURL  FieldRule `yaml:"speaker_url" toml:"speaker_url"`
	Host        FieldRule `yaml:"host" toml:"host"`
	Affiliation FieldRule `yaml:"affiliation" toml:"affiliation"`
	Location    FieldRule `yaml:"location" toml:"location"`

	// CombineDateTime joins date and time with a space before date parsing
	CombineDateTime bool `yaml:"combine_date_time" toml:"combine_date_time"`
	// BaseURL resolves relative links; the page URL is used when empty
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// FeedConfig describes an Atom feed whose entries link to detail pages.
type FeedConfig struct {
	URL string `yaml:"url" toml:"url"`
	// DetailPattern runs over each entry's linked page; groups are date and location
	DetailPattern string `yaml:"detail_pattern" toml:"detail_pattern"`
}

// LocatorConfig finds the listing page by link text on a table-of-contents page.
type LocatorConfig struct {
	TOCURL   string `yaml:"toc_url" toml:"toc_url"`
	Label    string `yaml:"label" toml:"label"`
	Selector string `yaml:"selector" toml:"selector"`
}

// UploadConfig is the default SFTP destination of a source.
type UploadConfig struct {
	Host string `yaml:"host" toml:"host"`
	Path string `yaml:"path" toml:"path"`
	User string `yaml:"user" toml:"user"`
}

// Source is one department instantiation of the pipeline.
type Source struct {
	Name         string        `yaml:"name" toml:"name"`
	Description  string        `yaml:"description" toml:"description"`
	Timezone     string        `yaml:"timezone" toml:"timezone"`
	CalendarName string        `yaml:"calendar_name" toml:"calendar_name"`
	ProductID    string        `yaml:"product_id" toml:"product_id"`
	Duration     time.Duration `yaml:"duration" toml:"duration"`
	Location     string        `yaml:"location" toml:"location"`

	PageURL string         `yaml:"page_url" toml:"page_url"`
	Locator *LocatorConfig `yaml:"locator" toml:"locator"`
	Feed    *FeedConfig    `yaml:"feed" toml:"feed"`
	Listing ListingConfig  `yaml:"listing" toml:"listing"`

	StripPrefix        string   `yaml:"strip_prefix" toml:"strip_prefix"`
	SkipPrefixes       []string `yaml:"skip_prefixes" toml:"skip_prefixes"`
	SkipSpeakerMarkers []string `yaml:"skip_speaker_markers" toml:"skip_speaker_markers"`
	StripTimeRange     bool     `yaml:"strip_time_range" toml:"strip_time_range"`
	MidnightFix        bool     `yaml:"midnight_fix" toml:"midnight_fix"`
	DedupKey           string   `yaml:"dedup_key" toml:"dedup_key"` // "id" or "link"

	Tabular bool          `yaml:"tabular" toml:"tabular"` // supports the CSV export
	Upload  *UploadConfig `yaml:"upload" toml:"upload"`
}

// File is the on-disk configuration layout
type File struct {
	Sources []Source `yaml:"sources" toml:"sources"`
}

// Registry holds the sources available to a run, keyed by name
type Registry map[string]*Source

// Names returns the registered source names in sorted order
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named source or a configuration error
func (r Registry) Get(name string) (*Source, error) {
	src, ok := r[name]
	if !ok {
		return nil, event.Errorf(event.ErrConfig, "selecting source", "unknown source %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return src, nil
}

// Load returns the built-in sources merged with those in path. An empty path
// yields only the built-ins. The decoder is chosen by file extension.
func Load(path string) (Registry, error) {
	reg := Builtin()
	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, event.Wrap(event.ErrConfig, "reading config", err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, event.Wrap(event.ErrConfig, "parsing toml", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, event.Wrap(event.ErrConfig, "parsing yaml", err)
		}
	default:
		return nil, event.Errorf(event.ErrConfig, "reading config", "unsupported config format %q", filepath.Ext(path))
	}

	for i := range f.Sources {
		src := f.Sources[i]
		if err := src.Validate(); err != nil {
			return nil, err
		}
		reg[src.Name] = &src
	}
	return reg, nil
}

// Validate fills defaults and checks that the source can run
func (s *Source) Validate() error {
	if s.Name == "" {
		return event.Errorf(event.ErrConfig, "validating source", "source without a name")
	}
	fail := func(format string, args ...any) error {
		return event.Errorf(event.ErrConfig, "validating source "+s.Name, format, args...)
	}

	if s.Timezone == "" {
		return fail("timezone is required")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fail("invalid timezone %q: %v", s.Timezone, err)
	}
	if s.PageURL == "" && s.Locator == nil && s.Feed == nil {
		return fail("one of page_url, locator or feed is required")
	}
	if (s.PageURL != "" || s.Locator != nil) && s.Listing.Item == "" {
		return fail("listing.item selector is required for page scraping")
	}
	if s.Locator != nil && (s.Locator.TOCURL == "" || s.Locator.Label == "") {
		return fail("locator needs toc_url and label")
	}
	if s.Feed != nil && s.Feed.URL == "" {
		return fail("feed needs a url")
	}
	if s.Duration < 0 {
		return fail("duration must be positive, got %s", s.Duration)
	}

	switch event.KeyStrategy(s.DedupKey) {
	case event.KeyByID, event.KeyByLink:
	case "":
		s.DedupKey = string(event.KeyByLink)
	default:
		return fail("dedup_key must be %q or %q", event.KeyByID, event.KeyByLink)
	}

	if s.Duration == 0 {
		s.Duration = DefaultDuration
	}
	if s.CalendarName == "" {
		s.CalendarName = s.Name
	}
	if s.ProductID == "" {
		s.ProductID = fmt.Sprintf("-//cucs-colloq//%s//EN", s.Name)
	}
	if s.Locator != nil && s.Locator.Selector == "" {
		s.Locator.Selector = DefaultLocator
	}
	return nil
}
