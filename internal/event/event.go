package event

import (
	"strings"
	"time"
)

// DefaultDescription is used when a listing names no speaker
const DefaultDescription = "Colloquium"

// RawListing is the unparsed scrape result for one colloquium listing.
// Optional fields are nil when the page does not carry them.
type RawListing struct {
	Title       string
	Date        string
	Time        string
	Link        string
	Speaker     *string
	SpeakerURL  *string
	Host        *string
	Affiliation *string
	Location    string
	Stamp       string // feed "updated" text, empty for page listings
}

// Event represents a normalized colloquium ready for calendar output
type Event struct {
	UID         string    `json:"uid"` // canonical link, unique within a run
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Stamp       time.Time `json:"stamp"`

	// Carried for the tabular export only
	Speaker    string `json:"speaker,omitempty"`
	SpeakerURL string `json:"speaker_url,omitempty"`
	Host       string `json:"host,omitempty"`
}

// Builder assembles canonical events from normalized listing fields
type Builder struct {
	Duration time.Duration
	// StripPrefix is removed from the front of titles when present
	StripPrefix string
	// SkipPrefixes drop a listing whose (stripped) title starts with any of them
	SkipPrefixes []string
	// SkipSpeakerMarkers drop a listing whose speaker text contains any of them
	SkipSpeakerMarkers []string
	// Location is used when the listing carries none
	Location string
}

// NormalizeTitle strips the configured prefix and reports whether the
// listing should be kept.
func (b *Builder) NormalizeTitle(title string) (string, bool) {
	title = strings.TrimSpace(title)
	if b.StripPrefix != "" {
		title = strings.TrimPrefix(title, b.StripPrefix)
	}
	for _, p := range b.SkipPrefixes {
		if p != "" && strings.HasPrefix(title, p) {
			return title, false
		}
	}
	return title, true
}

// Build creates an Event. It returns ok=false for "no colloquium" listings,
// which are filtered rather than treated as errors.
func (b *Builder) Build(title string, start time.Time, location, link string, speaker *string) (*Event, bool) {
	title, ok := b.NormalizeTitle(title)
	if !ok {
		return nil, false
	}

	description := DefaultDescription
	if speaker != nil && strings.TrimSpace(*speaker) != "" {
		for _, m := range b.SkipSpeakerMarkers {
			if m != "" && strings.Contains(*speaker, m) {
				return nil, false
			}
		}
		description = *speaker
	}

	if location == "" {
		location = b.Location
	}

	return &Event{
		UID:         link,
		Title:       title,
		Start:       start,
		End:         start.Add(b.Duration),
		Location:    location,
		Description: description,
		URL:         link,
		Speaker:     deref(speaker),
	}, true
}

// FromListing builds an Event from a listing whose start has already been
// normalized, carrying speaker URL, host and stamp through.
func (b *Builder) FromListing(l RawListing, start, stamp time.Time) (*Event, bool) {
	evt, ok := b.Build(l.Title, start, l.Location, l.Link, l.Speaker)
	if !ok {
		return nil, false
	}
	evt.Stamp = stamp
	evt.SpeakerURL = deref(l.SpeakerURL)
	evt.Host = deref(l.Host)
	return evt, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
