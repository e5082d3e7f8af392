// Package pipeline runs one source end to end: scrape, normalize, build,
// deduplicate and assemble the calendar.
//
// A Run is the context object for a single execution. It owns the set of
// seen keys and the calendar under construction; nothing is shared between
// runs. Stages execute strictly in order and the first error aborts the run.
package pipeline

import (
	"context"
	"time"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/calendar"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/logger"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/metrics"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/scraper"
)

// Options configures a Run. Zero values are replaced with defaults.
type Options struct {
	Scraper *scraper.Scraper
	Logger  *logger.Logger
	Metrics *metrics.Run
	// Now is the run clock, used as the generation stamp of page listings
	Now func() time.Time
}

// Stats counts what happened to the listings of a run
type Stats struct {
	Listings   int
	Events     int
	Duplicates int
	Filtered   int
}

// Run holds the state of one execution against one source
type Run struct {
	src     *config.Source
	scraper *scraper.Scraper
	norm    *event.Normalizer
	builder *event.Builder
	keys    event.KeyStrategy
	seen    *event.Seen
	cal     *calendar.Calendar
	log     *logger.Logger
	metrics *metrics.Run
	now     time.Time
	stats   Stats
}

// New prepares a run for src. Invalid timezones and key strategies are
// configuration errors.
func New(src *config.Source, opts Options) (*Run, error) {
	norm, err := event.NewNormalizer(src.Timezone)
	if err != nil {
		return nil, err
	}
	norm.StripTimeRange = src.StripTimeRange
	norm.MidnightFix = src.MidnightFix

	keys := event.KeyStrategy(src.DedupKey)
	if err := keys.Validate(); err != nil {
		return nil, err
	}

	if opts.Scraper == nil {
		opts.Scraper = scraper.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRun(src.Name)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	duration := src.Duration
	if duration == 0 {
		duration = config.DefaultDuration
	}

	return &Run{
		src:     src,
		scraper: opts.Scraper,
		norm:    norm,
		builder: &event.Builder{
			Duration:           duration,
			StripPrefix:        src.StripPrefix,
			SkipPrefixes:       src.SkipPrefixes,
			SkipSpeakerMarkers: src.SkipSpeakerMarkers,
			Location:           src.Location,
		},
		keys: keys,
		seen: event.NewSeen(),
		cal: calendar.New(calendar.Meta{
			ProductID: src.ProductID,
			Name:      src.CalendarName,
			Timezone:  src.Timezone,
		}),
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now(),
	}, nil
}

// Execute scrapes the feed (when configured) and then the listing page, and
// returns the assembled calendar. The feed goes first so its entries win
// over page listings with the same key.
func (r *Run) Execute(ctx context.Context) (*calendar.Calendar, error) {
	if r.src.Feed != nil {
		r.log.Debug("Reading feed", logger.Fields{"source": r.src.Name, "url": r.src.Feed.URL})
		for l, err := range r.scraper.FeedListings(ctx, *r.src.Feed) {
			if err != nil {
				return nil, err
			}
			if err := r.accept(l); err != nil {
				return nil, err
			}
		}
	}

	pageURL, err := r.pageURL(ctx)
	if err != nil {
		return nil, err
	}
	if pageURL != "" {
		r.log.Debug("Reading listing page", logger.Fields{"source": r.src.Name, "url": pageURL})
		for l, err := range r.scraper.Listings(ctx, pageURL, r.src.Listing) {
			if err != nil {
				return nil, err
			}
			if err := r.accept(l); err != nil {
				return nil, err
			}
		}
	}

	return r.cal, nil
}

// Calendar returns the calendar built so far
func (r *Run) Calendar() *calendar.Calendar { return r.cal }

// Stats returns the listing counts so far
func (r *Run) Stats() Stats { return r.stats }

// pageURL resolves the listing page, following the locator when configured
func (r *Run) pageURL(ctx context.Context) (string, error) {
	if r.src.Locator == nil {
		return r.src.PageURL, nil
	}
	url, err := r.scraper.Locate(ctx, *r.src.Locator)
	if err != nil {
		return "", err
	}
	r.log.Debug("Located listing page", logger.Fields{"label": r.src.Locator.Label, "url": url})
	return url, nil
}

// accept normalizes one listing and adds it to the calendar unless it is a
// placeholder or its key was already seen. Placeholder titles are dropped
// before the date is looked at; speaker markers only after it parsed.
func (r *Run) accept(l event.RawListing) error {
	r.stats.Listings++
	r.metrics.Listing()

	if _, keep := r.builder.NormalizeTitle(l.Title); !keep {
		r.filtered(l)
		return nil
	}

	start, err := r.start(l)
	if err != nil {
		return err
	}

	stamp := r.now
	if l.Stamp != "" {
		if stamp, err = r.norm.ParseStamp(l.Stamp); err != nil {
			return err
		}
	}

	evt, ok := r.builder.FromListing(l, start, stamp)
	if !ok {
		r.filtered(l)
		return nil
	}

	key, err := r.keys.Key(evt.UID)
	if err != nil {
		return err
	}
	if !r.seen.Add(key) {
		r.stats.Duplicates++
		r.metrics.Duplicate()
		r.log.Debug("Skipping duplicate listing", logger.Fields{"key": key, "title": evt.Title})
		return nil
	}

	r.cal.Add(evt)
	r.stats.Events++
	r.metrics.Event()
	return nil
}

func (r *Run) filtered(l event.RawListing) {
	r.stats.Filtered++
	r.metrics.Filtered()
	r.log.Debug("Skipping placeholder listing", logger.Fields{"title": l.Title})
}

// start parses the listing's date and, when given separately, its clock time.
// Only listings that survive the title filter need a date.
func (r *Run) start(l event.RawListing) (time.Time, error) {
	if l.Date == "" {
		return time.Time{}, event.Errorf(event.ErrStructure, "extracting listing", "no date for %q", l.Title)
	}
	date, err := r.norm.ParseDate(l.Date)
	if err != nil {
		return time.Time{}, err
	}
	if l.Time == "" {
		return date, nil
	}
	hour, minute, err := r.norm.ParseClock(l.Time)
	if err != nil {
		return time.Time{}, err
	}
	return event.WithClock(date, hour, minute), nil
}
