// Package calendar assembles colloquium events into an iCalendar document.
package calendar

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
)

const (
	PropCalendarName = "X-WR-CALNAME"
	PropTimezone     = "X-WR-TIMEZONE"
)

// Meta is the fixed header of a calendar document
type Meta struct {
	ProductID string
	Name      string
	Timezone  string
}

// Calendar is an ordered collection of events under one header.
// Events are kept in the order they were added.
type Calendar struct {
	meta   Meta
	events []*event.Event
	now    func() time.Time
}

// New creates an empty calendar
func New(meta Meta) *Calendar {
	return &Calendar{meta: meta, now: time.Now}
}

// Meta returns the calendar header
func (c *Calendar) Meta() Meta {
	return c.meta
}

// Add appends an event
func (c *Calendar) Add(evt *event.Event) {
	c.events = append(c.events, evt)
}

// Events returns the events in insertion order
func (c *Calendar) Events() []*event.Event {
	return c.events
}

// Len returns the number of events
func (c *Calendar) Len() int {
	return len(c.events)
}

// Encode writes the calendar in iCalendar format
func (c *Calendar) Encode(w io.Writer) error {
	if len(c.events) == 0 {
		return c.encodeEmpty(w)
	}
	if err := ical.NewEncoder(w).Encode(c.build()); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

// Bytes returns the encoded calendar
func (c *Calendar) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// header lists the calendar properties in the order the ical encoder sorts
// them. Values are escaped text with no parameters, so both encode paths
// produce the same lines.
func (c *Calendar) header() []*ical.Prop {
	props := []*ical.Prop{
		ical.NewProp(ical.PropProductID),
		ical.NewProp(ical.PropVersion),
		ical.NewProp(PropCalendarName),
		ical.NewProp(PropTimezone),
	}
	values := []string{c.meta.ProductID, "2.0", c.meta.Name, c.meta.Timezone}
	for i, p := range props {
		p.Value = textEscaper.Replace(values[i])
	}
	return props
}

// encodeEmpty writes a header-only VCALENDAR, which the ical encoder refuses
// to produce.
func (c *Calendar) encodeEmpty(w io.Writer) error {
	var b strings.Builder
	b.WriteString("BEGIN:" + ical.CompCalendar + "\r\n")
	for _, p := range c.header() {
		b.WriteString(p.Name + ":" + p.Value + "\r\n")
	}
	b.WriteString("END:" + ical.CompCalendar + "\r\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

func (c *Calendar) build() *ical.Calendar {
	cal := ical.NewCalendar()
	for _, p := range c.header() {
		cal.Props.Set(p)
	}

	for _, evt := range c.events {
		cal.Children = append(cal.Children, c.component(evt))
	}
	return cal
}

// component converts one event. Start and end keep their zone as TZID so the
// wall clock in the department timezone is preserved.
func (c *Calendar) component(evt *event.Event) *ical.Component {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, evt.UID)
	vevent.Props.SetText(ical.PropSummary, evt.Title)
	vevent.Props.SetDateTime(ical.PropDateTimeStart, evt.Start)
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, evt.End)

	stamp := evt.Stamp
	if stamp.IsZero() {
		stamp = c.now()
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if evt.Location != "" {
		vevent.Props.SetText(ical.PropLocation, evt.Location)
	}
	vevent.Props.SetText(ical.PropDescription, evt.Description)
	if evt.URL != "" {
		url := ical.NewProp(ical.PropURL)
		url.Value = evt.URL
		vevent.Props.Set(url)
	}
	return vevent.Component
}

// Decode reads a calendar document back into its header and events.
func Decode(r io.Reader) (Meta, []*event.Event, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return Meta{}, nil, fmt.Errorf("decoding calendar: %w", err)
	}

	meta := Meta{
		ProductID: propText(cal.Props, ical.PropProductID),
		Name:      propText(cal.Props, PropCalendarName),
		Timezone:  propText(cal.Props, PropTimezone),
	}

	var events []*event.Event
	for _, ve := range cal.Events() {
		start, err := ve.Props.DateTime(ical.PropDateTimeStart, time.UTC)
		if err != nil {
			return meta, nil, fmt.Errorf("decoding DTSTART: %w", err)
		}
		end, err := ve.Props.DateTime(ical.PropDateTimeEnd, time.UTC)
		if err != nil {
			return meta, nil, fmt.Errorf("decoding DTEND: %w", err)
		}
		stamp, _ := ve.Props.DateTime(ical.PropDateTimeStamp, time.UTC)

		evt := &event.Event{
			UID:         propText(ve.Props, ical.PropUID),
			Title:       propText(ve.Props, ical.PropSummary),
			Start:       start,
			End:         end,
			Location:    propText(ve.Props, ical.PropLocation),
			Description: propText(ve.Props, ical.PropDescription),
			Stamp:       stamp,
		}
		if p := ve.Props.Get(ical.PropURL); p != nil {
			evt.URL = p.Value
		}
		events = append(events, evt)
	}
	return meta, events, nil
}

func propText(props ical.Props, name string) string {
	s, err := props.Text(name)
	if err != nil {
		return ""
	}
	return s
}
