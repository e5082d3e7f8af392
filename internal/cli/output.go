package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/calendar"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
}

// SourceInfo describes one source profile for listing
type SourceInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Timezone    string `json:"timezone"`
	Duration    string `json:"duration"`
	Page        string `json:"page,omitempty"`
	Feed        string `json:"feed,omitempty"`
	Tabular     bool   `json:"tabular"`
}

func sourceInfo(src *config.Source) SourceInfo {
	info := SourceInfo{
		Name:        src.Name,
		Description: src.Description,
		Timezone:    src.Timezone,
		Duration:    src.Duration.String(),
		Page:        src.PageURL,
		Tabular:     src.Tabular,
	}
	if src.Locator != nil {
		info.Page = fmt.Sprintf("%q on %s", src.Locator.Label, src.Locator.TOCURL)
	}
	if src.Feed != nil {
		info.Feed = src.Feed.URL
	}
	return info
}

// AgendaResult is the output of the show command
type AgendaResult struct {
	File  string                `json:"file"`
	From  time.Time             `json:"from"`
	To    time.Time             `json:"to"`
	Items []calendar.AgendaItem `json:"items"`
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeSources outputs the source list
func writeSources(w io.Writer, infos []SourceInfo, format OutputFormat, verbose bool) error {
	if format == FormatJSON {
		return writeJSON(w, infos)
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%-16s %s\n", info.Name, info.Description)
		if verbose {
			fmt.Fprintf(w, "    Timezone: %s\n", info.Timezone)
			fmt.Fprintf(w, "    Duration: %s\n", info.Duration)
			if info.Feed != "" {
				fmt.Fprintf(w, "    Feed: %s\n", info.Feed)
			}
			if info.Page != "" {
				fmt.Fprintf(w, "    Page: %s\n", info.Page)
			}
		}
	}
	return nil
}

// writeAgenda outputs the agenda of a calendar file
func writeAgenda(w io.Writer, result *AgendaResult, format OutputFormat, loc *time.Location) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}
	if len(result.Items) == 0 {
		fmt.Fprintln(w, "No colloquia scheduled.")
		return nil
	}
	if err := calendar.WriteAgenda(w, result.Items, loc); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d colloquia\n", len(result.Items))
	return nil
}
