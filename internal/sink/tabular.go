package sink

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
)

// TabularDateLayout formats the Date column
const TabularDateLayout = "01/02/2006"

// TabularHeader is the fixed column header of the spreadsheet export.
// The two czar columns are scheduling placeholders and stay blank.
var TabularHeader = []string{"Date", "Czar", "Backup Czar", "Name", "Affiliation", "Title/Abstract", "Host"}

// WriteTabular writes one CSV row per event, in the given order
func WriteTabular(w io.Writer, events []*event.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TabularHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, evt := range events {
		row := []string{
			evt.Start.Format(TabularDateLayout),
			"",
			"",
			Hyperlink(evt.SpeakerURL, evt.Speaker),
			"",
			evt.Title,
			evt.Host,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", evt.UID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TabularBytes renders the export in memory
func TabularBytes(events []*event.Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTabular(&buf, events); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hyperlink renders a spreadsheet HYPERLINK formula, or the bare label when
// there is no URL.
func Hyperlink(url, label string) string {
	if url == "" {
		return label
	}
	q := func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }
	return fmt.Sprintf("=HYPERLINK(%s,%s)", q(url), q(label))
}
