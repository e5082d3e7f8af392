package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/calendar"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate     SortOrder = "date"
	SortByTitle    SortOrder = "title"
	SortByLocation SortOrder = "location"
)

func parseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case SortByDate, SortByTitle, SortByLocation:
		return o, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'date', 'title' or 'location')", s)
	}
}

// sortItems sorts agenda items based on the specified sort order
func sortItems(items []calendar.AgendaItem, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Start.Before(items[j].Start)
		})
	case SortByTitle:
		sort.SliceStable(items, func(i, j int) bool {
			ti, tj := strings.ToLower(items[i].Summary), strings.ToLower(items[j].Summary)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by date
			return items[i].Start.Before(items[j].Start)
		})
	case SortByLocation:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Location != items[j].Location {
				return items[i].Location < items[j].Location
			}
			return items[i].Start.Before(items[j].Start)
		})
	}
}
