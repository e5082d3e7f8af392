package calendar

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/apognu/gocal"
)

// AgendaItem is one occurrence read back from a published calendar file
type AgendaItem struct {
	UID      string    `json:"uid"`
	Summary  string    `json:"summary"`
	Location string    `json:"location,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// ReadAgenda parses an iCalendar stream and returns the events overlapping
// [from, to), sorted by start.
func ReadAgenda(r io.Reader, from, to time.Time) ([]AgendaItem, error) {
	c := gocal.NewParser(r)
	c.Start, c.End = &from, &to
	if err := c.Parse(); err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}

	items := make([]AgendaItem, 0, len(c.Events))
	for _, e := range c.Events {
		if e.Start == nil {
			continue
		}
		item := AgendaItem{
			UID:      e.Uid,
			Summary:  e.Summary,
			Location: e.Location,
			Start:    *e.Start,
		}
		if e.End != nil {
			item.End = *e.End
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Start.Before(items[j].Start)
	})
	return items, nil
}

// WriteAgenda prints one line per item in loc, "2006-01-02 15:04 +1:10 Summary (Location)"
func WriteAgenda(w io.Writer, items []AgendaItem, loc *time.Location) error {
	for _, it := range items {
		d := it.End.Sub(it.Start)
		line := fmt.Sprintf("%s +%d:%02d %s", it.Start.In(loc).Format("2006-01-02 15:04"), int(d.Hours()), int(d.Minutes())%60, it.Summary)
		if it.Location != "" {
			line += fmt.Sprintf(" (%s)", it.Location)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
