package event

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// FeedStampLayout is the layout of Atom "updated" values
const FeedStampLayout = "2006-01-02T15:04:05Z"

var (
	// "-2:30 " style trailing end time of a range, as in "3:30-4:20 pm"
	timeRangePattern = regexp.MustCompile(`-\d\d?:\d\d `)
	meridiemPattern  = regexp.MustCompile(`(?i)(\d)\s*([ap])\.?m\b\.?`)
	spacePattern     = regexp.MustCompile(`\s+`)

	// leading day name, which only restates the date
	weekdayPattern = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues|tue|wed|thurs|thur|thu|fri|sat|sun)\.?,?\s+`)

	// "Sept" and dotted abbreviations such as "Jan." or "Sept."
	monthAbbrevPattern = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)t?\.?(\s)`)

	// " - " or an en dash between the date and the time
	separatorPattern = regexp.MustCompile(`\s+[-–]\s+`)
)

// dateLayouts are tried in order before falling back to the flexible parser.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"January 2, 2006 3:04 PM",
	"January 2, 2006, 3:04 PM",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006, 3:04 PM",
	"1/2/2006",
	"1/2/2006 3:04 PM",
	"2006-01-02",
	"2006-01-02 15:04",
}

// Normalizer converts raw date and clock text into instants in a fixed
// department timezone. The wall clock reading is attached to the zone, never
// converted from another offset.
type Normalizer struct {
	Location *time.Location
	// StripTimeRange removes "-H:MM " range endings before parsing
	StripTimeRange bool
	// MidnightFix maps "12am" to hour 0. Off by default, where "12am" stays 12.
	MidnightFix bool
}

// NewNormalizer creates a Normalizer for the named IANA zone
func NewNormalizer(zone string) (*Normalizer, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, Wrap(ErrConfig, "loading timezone "+zone, err)
	}
	return &Normalizer{Location: loc}, nil
}

// ParseDate parses generic calendar date text, optionally with an embedded
// time of day, and attaches the configured zone.
func (n *Normalizer) ParseDate(text string) (time.Time, error) {
	cleaned := text
	if n.StripTimeRange {
		cleaned = timeRangePattern.ReplaceAllString(cleaned, "")
	}
	cleaned = normalizeDateText(cleaned)
	if cleaned == "" {
		return time.Time{}, Errorf(ErrParse, "parsing date", "empty date text")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return n.attach(t), nil
		}
	}

	t, err := dateparse.ParseIn(cleaned, n.location())
	if err != nil {
		return time.Time{}, Wrap(ErrParse, fmt.Sprintf("parsing date %q", text), err)
	}
	return n.attach(t), nil
}

// ParseStamp parses a feed timestamp in FeedStampLayout and attaches the zone.
func (n *Normalizer) ParseStamp(text string) (time.Time, error) {
	t, err := time.Parse(FeedStampLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, Wrap(ErrParse, fmt.Sprintf("parsing stamp %q", text), err)
	}
	return n.attach(t), nil
}

// Clock converts a 12-hour reading split at ':' into a 24-hour hour and minute.
//
//	("12", "00pm") -> 12, 0
//	("9", "30am")  -> 9, 30
//	("11", "45pm") -> 23, 45
//	("12", "15am") -> 12, 15 (0, 15 with MidnightFix)
func (n *Normalizer) Clock(hour, minute string) (int, int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(hour))
	if err != nil {
		return 0, 0, Wrap(ErrParse, fmt.Sprintf("parsing hour %q", hour), err)
	}

	m := strings.ToLower(strings.TrimSpace(minute))
	if strings.HasSuffix(m, "am") || strings.HasSuffix(m, "pm") {
		if strings.HasSuffix(m, "pm") {
			h += 12
			if h == 24 { // noon
				h = 12
			}
		} else if n.MidnightFix && h == 12 {
			h = 0
		}
		m = m[:len(m)-2]
	}

	min, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return 0, 0, Wrap(ErrParse, fmt.Sprintf("parsing minute %q", minute), err)
	}
	if h < 0 || h > 23 || min < 0 || min > 59 {
		return 0, 0, Errorf(ErrParse, "parsing clock", "%s:%s out of range", hour, minute)
	}
	return h, min, nil
}

// ParseClock splits "3:30 pm" style text on ':' and applies Clock.
func (n *Normalizer) ParseClock(text string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 {
		return 0, 0, Errorf(ErrParse, "parsing clock", "%q is not an H:MM time", text)
	}
	return n.Clock(parts[0], parts[1])
}

// WithClock replaces the hour and minute of an already parsed date.
func WithClock(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, date.Second(), 0, date.Location())
}

// attach reinterprets the wall clock of t in the configured zone
func (n *Normalizer) attach(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, n.location())
}

func (n *Normalizer) location() *time.Location {
	if n.Location == nil {
		return time.Local
	}
	return n.Location
}

// normalizeDateText reduces the many ways pages write a date to the forms
// in dateLayouts: whitespace is collapsed, a leading day name and " - "
// separators are dropped, month abbreviations lose "t" and "." ("Sept." is
// "Sep") and meridiem suffixes ("3:30pm", "3:30 p.m.") become " PM".
func normalizeDateText(s string) string {
	s = spacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
	s = separatorPattern.ReplaceAllString(s, " ")
	s = weekdayPattern.ReplaceAllString(s, "")
	s = monthAbbrevPattern.ReplaceAllString(s, "$1$2")
	return meridiemPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := meridiemPattern.FindStringSubmatch(match)
		return sub[1] + " " + strings.ToUpper(sub[2]) + "M"
	})
}
