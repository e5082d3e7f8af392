package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/logger"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/metrics"
)

var runClock = time.Date(2023, 1, 4, 12, 0, 0, 0, time.UTC)

func options(m *metrics.Run) Options {
	return Options{
		Logger:  logger.New(logger.LevelError, &bytes.Buffer{}),
		Metrics: m,
		Now:     func() time.Time { return runClock },
	}
}

const uwFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Colloquia</title>
  <id>tag:example.edu,2023:colloquia</id>
  <updated>2023-01-03T08:00:00Z</updated>
  <entry>
    <title>Learning Systems</title>
    <link rel="alternate" href="%s/details?id=101"/>
    <author><name>Ada Lovelace</name></author>
    <updated>2023-01-03T08:00:00Z</updated>
    <id>tag:example.edu,2023:101</id>
  </entry>
</feed>`

const uwDetail = `<html><body><b>Learning Systems</b><br>Tuesday, January 10, 2023, 3:30-4:20 pm<br>EEB 105<p>Abstract.</p></body></html>`

const uwListing = `
<html><body><dl>
<dt><a href="/details?id=101">Learning Systems (page copy)</a> <b>Ada Lovelace</b> (Analytical Engines Inc.) <br>Tuesday, January 10, 2023</dt>
<dd>3:30 pm, EEB 105</dd>
<dt><a href="/details?id=102">Compilers</a> <b>Grace Hopper</b><br>Thursday, January 12, 2023</dt>
<dd>11:00 am, CSE 691</dd>
<dt><a href="/details?id=103">TBA</a> <b>NO COLLOQUIUM SCHEDULED</b><br>Tuesday, January 17, 2023</dt>
<dd>3:30 pm, EEB 105</dd>
</dl></body></html>`

func uwServer(t *testing.T) (*httptest.Server, *config.Source) {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed.xml":
			fmt.Fprintf(w, uwFeed, server.URL)
		case "/details":
			w.Write([]byte(uwDetail))
		case "/colloquia":
			w.Write([]byte(uwListing))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	src := *config.Builtin()["uw"]
	feed := *src.Feed
	feed.URL = server.URL + "/feed.xml"
	src.Feed = &feed
	src.PageURL = server.URL + "/colloquia"
	src.Listing.BaseURL = server.URL
	return server, &src
}

func TestExecute_FeedThenPage(t *testing.T) {
	server, src := uwServer(t)
	m := metrics.NewRun(src.Name)

	run, err := New(src, options(m))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cal, err := run.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	la, _ := time.LoadLocation("America/Los_Angeles")

	first := events[0]
	if first.Title != "Learning Systems" {
		t.Errorf("first event Title = %q, the feed entry should win", first.Title)
	}
	if first.UID != server.URL+"/details?id=101" {
		t.Errorf("first event UID = %q", first.UID)
	}
	if first.Description != "Ada Lovelace" {
		t.Errorf("first event Description = %q", first.Description)
	}
	if want := time.Date(2023, 1, 10, 15, 30, 0, 0, la); !first.Start.Equal(want) {
		t.Errorf("first event Start = %v, want %v", first.Start, want)
	}
	if want := time.Date(2023, 1, 3, 8, 0, 0, 0, la); !first.Stamp.Equal(want) {
		t.Errorf("first event Stamp = %v, want %v (attached, not converted)", first.Stamp, want)
	}
	if first.Location != "EEB 105" {
		t.Errorf("first event Location = %q", first.Location)
	}

	second := events[1]
	if second.Title != "Compilers" || second.Description != "Grace Hopper" {
		t.Errorf("second event = %q / %q", second.Title, second.Description)
	}
	if want := time.Date(2023, 1, 12, 11, 0, 0, 0, la); !second.Start.Equal(want) {
		t.Errorf("second event Start = %v, want %v", second.Start, want)
	}
	if want := second.Start.Add(60 * time.Minute); !second.End.Equal(want) {
		t.Errorf("second event End = %v, want %v", second.End, want)
	}
	if !second.Stamp.Equal(runClock) {
		t.Errorf("page listing Stamp = %v, want run clock", second.Stamp)
	}
	if second.Location != "CSE 691" {
		t.Errorf("second event Location = %q", second.Location)
	}

	want := Stats{Listings: 4, Events: 2, Duplicates: 1, Filtered: 1}
	if got := run.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}

	expected := `
# HELP colloq_duplicates_total Listings dropped because their key was already seen
# TYPE colloq_duplicates_total counter
colloq_duplicates_total{source="uw"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "colloq_duplicates_total"); err != nil {
		t.Errorf("metrics mismatch: %v", err)
	}
}

const cornellListing = `
<html><body><div class="view-content">
  <div class="views-row">
    <div class="views-field-title"><a href="/events/verified-compilers">CS Colloquium: Verified Compilers</a></div>
    <span class="date-display-single">Thursday, March 2, 2023</span>
    <div class="views-field-field-time">11:40am</div>
    <div class="views-field-body"><p><strong>Speaker:</strong> <a href="https://people.example.edu/hopper">Grace Hopper</a><br><strong>Host:</strong> Fred Schneider</p></div>
  </div>
  <div class="views-row">
    <div class="views-field-title"><a href="/events/none">No Colloquium Scheduled This Week</a></div>
    <span class="date-display-single">Thursday, March 9, 2023</span>
    <div class="views-field-field-time">11:40am</div>
  </div>
  <div class="views-row">
    <div class="views-field-title"><a href="/events/verified-compilers">CS Colloquium: Verified Compilers (repeat)</a></div>
    <span class="date-display-single">Thursday, March 16, 2023</span>
    <div class="views-field-field-time">11:40am</div>
  </div>
  <div class="views-row">
    <div class="views-field-title"><a href="/events/lambda">Lambda the Ultimate</a></div>
    <span class="date-display-single">Thursday, March 23, 2023</span>
    <div class="views-field-field-time">12:00pm</div>
  </div>
</div></body></html>`

func pageSource(t *testing.T, name, body string) *config.Source {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	src := *config.Builtin()[name]
	src.PageURL = server.URL
	src.Listing.BaseURL = "https://www.cs.cornell.edu"
	return &src
}

func TestExecute_PageOnly(t *testing.T) {
	src := pageSource(t, "cornell", cornellListing)

	run, err := New(src, options(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cal, err := run.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	ny, _ := time.LoadLocation("America/New_York")
	tests := []struct {
		title       string
		uid         string
		start       time.Time
		description string
		speakerURL  string
		host        string
	}{
		{
			title:       "Verified Compilers",
			uid:         "https://www.cs.cornell.edu/events/verified-compilers",
			start:       time.Date(2023, 3, 2, 11, 40, 0, 0, ny),
			description: "Grace Hopper",
			speakerURL:  "https://people.example.edu/hopper",
			host:        "Fred Schneider",
		},
		{
			title:       "Lambda the Ultimate",
			uid:         "https://www.cs.cornell.edu/events/lambda",
			start:       time.Date(2023, 3, 23, 12, 0, 0, 0, ny),
			description: event.DefaultDescription,
		},
	}

	events := cal.Events()
	if len(events) != len(tests) {
		t.Fatalf("got %d events, want %d", len(events), len(tests))
	}
	for i, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			evt := events[i]
			if evt.Title != tt.title {
				t.Errorf("Title = %q, want %q", evt.Title, tt.title)
			}
			if evt.UID != tt.uid || evt.URL != tt.uid {
				t.Errorf("UID/URL = %q/%q, want %q", evt.UID, evt.URL, tt.uid)
			}
			if !evt.Start.Equal(tt.start) {
				t.Errorf("Start = %v, want %v", evt.Start, tt.start)
			}
			if want := tt.start.Add(70 * time.Minute); !evt.End.Equal(want) {
				t.Errorf("End = %v, want %v", evt.End, want)
			}
			if evt.Location != "Gates Hall G01" {
				t.Errorf("Location = %q", evt.Location)
			}
			if evt.Description != tt.description {
				t.Errorf("Description = %q, want %q", evt.Description, tt.description)
			}
			if evt.SpeakerURL != tt.speakerURL || evt.Host != tt.host {
				t.Errorf("SpeakerURL/Host = %q/%q", evt.SpeakerURL, evt.Host)
			}
		})
	}

	want := Stats{Listings: 4, Events: 2, Duplicates: 1, Filtered: 1}
	if got := run.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestExecute_PlaceholderWithoutDate(t *testing.T) {
	page := `<html><body><div class="view-content">
  <div class="views-row">
    <div class="views-field-title"><a href="/events/lambda">Lambda the Ultimate</a></div>
    <span class="date-display-single">Thursday, March 23, 2023</span>
    <div class="views-field-field-time">12:00pm</div>
  </div>
  <div class="views-row">
    <div class="views-field-title"><a href="/events/none">No Colloquium Scheduled This Week</a></div>
  </div>
</div></body></html>`
	m := metrics.NewRun("cornell")
	run, err := New(pageSource(t, "cornell", page), options(m))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cal, err := run.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if cal.Len() != 1 || cal.Events()[0].Title != "Lambda the Ultimate" {
		t.Fatalf("events = %+v, want only Lambda the Ultimate", cal.Events())
	}
	want := Stats{Listings: 2, Events: 1, Filtered: 1}
	if got := run.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
	expected := `
# HELP colloq_filtered_total Listings dropped as placeholders
# TYPE colloq_filtered_total counter
colloq_filtered_total{source="cornell"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "colloq_filtered_total"); err != nil {
		t.Errorf("metrics mismatch: %v", err)
	}
}

const tocPage = `<html><body><nav><ul>
<li><a href="/events/seminars">Seminars</a></li>
<li><a href="/events/colloquium-series">Colloquium Series</a></li>
</ul></nav></body></html>`

const eventsPage = `<html><body>
<div class="event">
  <h3 class="event-title"><a href="/events/colloquium-series/robots">Robots That Learn</a></h3>
  <span class="event-date">April 6, 2023</span>
  <span class="event-time">4:15 pm</span>
  <span class="speaker">Rodney Brooks</span>
  <span class="event-location">Gates 122</span>
</div>
</body></html>`

func TestExecute_Locator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events":
			w.Write([]byte(tocPage))
		case "/events/colloquium-series":
			w.Write([]byte(eventsPage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src := *config.Builtin()["cornell-events"]
	loc := *src.Locator
	loc.TOCURL = server.URL + "/events"
	src.Locator = &loc

	run, err := New(&src, options(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cal, err := run.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if cal.Len() != 1 {
		t.Fatalf("got %d events, want 1", cal.Len())
	}

	evt := cal.Events()[0]
	ny, _ := time.LoadLocation("America/New_York")
	if want := time.Date(2023, 4, 6, 16, 15, 0, 0, ny); !evt.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", evt.Start, want)
	}
	if evt.UID != server.URL+"/events/colloquium-series/robots" {
		t.Errorf("UID = %q", evt.UID)
	}
	if evt.Description != "Rodney Brooks" || evt.Location != "Gates 122" {
		t.Errorf("Description/Location = %q/%q", evt.Description, evt.Location)
	}
}

func TestExecute_Errors(t *testing.T) {
	badDate := `<html><body><div class="views-row">
<div class="views-field-title"><a href="/events/x">Talk</a></div>
<span class="date-display-single">sometime soon</span>
</div></body></html>`

	noTitle := `<html><body><div class="views-row">
<span class="date-display-single">Thursday, March 2, 2023</span>
</div></body></html>`

	tests := []struct {
		name    string
		source  func(t *testing.T) *config.Source
		wantErr error
	}{
		{
			name: "fetch failure",
			source: func(t *testing.T) *config.Source {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				}))
				t.Cleanup(server.Close)
				src := *config.Builtin()["cornell"]
				src.PageURL = server.URL
				return &src
			},
			wantErr: event.ErrFetch,
		},
		{
			name:    "unparseable date",
			source:  func(t *testing.T) *config.Source { return pageSource(t, "cornell", badDate) },
			wantErr: event.ErrParse,
		},
		{
			name:    "missing title",
			source:  func(t *testing.T) *config.Source { return pageSource(t, "cornell", noTitle) },
			wantErr: event.ErrStructure,
		},
		{
			name: "kept listing without date",
			source: func(t *testing.T) *config.Source {
				return pageSource(t, "cornell", `<html><body><div class="views-row">
<div class="views-field-title"><a href="/events/x">Talk</a></div>
</div></body></html>`)
			},
			wantErr: event.ErrStructure,
		},
		{
			name: "id key without id",
			source: func(t *testing.T) *config.Source {
				src := pageSource(t, "cornell", cornellListing)
				src.DedupKey = string(event.KeyByID)
				return src
			},
			wantErr: event.ErrStructure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewRun("test")
			run, err := New(tt.source(t), options(m))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			_, err = run.Execute(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	src := *config.Builtin()["cornell"]
	src.Timezone = "Mars/Olympus_Mons"
	if _, err := New(&src, options(nil)); !errors.Is(err, event.ErrConfig) {
		t.Errorf("bad timezone error = %v, want ErrConfig", err)
	}

	src = *config.Builtin()["cornell"]
	src.DedupKey = "title"
	if _, err := New(&src, options(nil)); !errors.Is(err, event.ErrConfig) {
		t.Errorf("bad dedup key error = %v, want ErrConfig", err)
	}
}
