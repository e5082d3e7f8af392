package config

import "time"

func node(i int) *int { return &i }

// Builtin returns fresh copies of the known department sources.
func Builtin() Registry {
	sources := []*Source{
		{
			Name:         "uw",
			Description:  "UW CSE colloquia: Atom feed plus the legacy dt/dd listing page",
			Timezone:     "America/Los_Angeles",
			CalendarName: "UW CSE Colloquia",
			ProductID:    "-//cucs-colloq//uwcse//",
			Duration:     60 * time.Minute,
			PageURL:      "http://www.cs.washington.edu/htbin-post/mvis/mvis/Colloquia",
			Feed: &FeedConfig{
				URL:           "http://www.cs.washington.edu/events/colloquia-atom.xml",
				DetailPattern: `</b><br>([^<]+)<br>([^<]*)<p>`,
			},
			Listing: ListingConfig{
				Item:        "dt",
				Detail:      "dd",
				Title:       FieldRule{Selector: "a"},
				Link:        FieldRule{Selector: "a", Attr: "href"},
				Speaker:     FieldRule{Selector: "b"},
				Affiliation: FieldRule{Node: node(-2)},
				Date:        FieldRule{Node: node(-1)},
				Time:        FieldRule{Scope: "detail", Node: node(0), Pattern: `^([^,]+),`},
				Location:    FieldRule{Scope: "detail", Node: node(0), Pattern: `^[^,]*,(.*)$`},
				BaseURL:     "http://www.cs.washington.edu",
			},
			SkipSpeakerMarkers: []string{"NO COLLOQUIUM SCHEDULED"},
			StripTimeRange:     true,
			DedupKey:           "id",
			Upload: &UploadConfig{
				Host: "recycle.cs.washington.edu",
				Path: "public_html/colloquia.ics",
			},
		},
		{
			Name:         "cornell",
			Description:  "Cornell CS colloquium page with speaker/host labels and spreadsheet export",
			Timezone:     "America/New_York",
			CalendarName: "Cornell CS Colloquium",
			ProductID:    "-//cucs-colloq//cornell-cs//EN",
			Duration:     70 * time.Minute,
			Location:     "Gates Hall G01",
			PageURL:      "https://www.cs.cornell.edu/events/colloquium",
			Listing: ListingConfig{
				Item:            ".views-row",
				Title:           FieldRule{Selector: ".views-field-title a"},
				Link:            FieldRule{Selector: ".views-field-title a", Attr: "href"},
				Date:            FieldRule{Selector: ".date-display-single"},
				Time:            FieldRule{Selector: ".views-field-field-time"},
				Speaker:         FieldRule{Pattern: `Speaker:[ \t]*([^\n]+)`},
				SpeakerURL:      FieldRule{Pattern: `Speaker:\s*(?:</?[b-z][^>]*>\s*)*<a\s[^>]*href="([^"]+)"`, Markup: true},
				Host:            FieldRule{Pattern: `Host:[ \t]*([^\n]+)`},
				CombineDateTime: true,
				BaseURL:         "https://www.cs.cornell.edu",
			},
			StripPrefix:  "CS Colloquium: ",
			SkipPrefixes: []string{"No Colloquium"},
			DedupKey:     "link",
			Tabular:      true,
		},
		{
			Name:         "cornell-events",
			Description:  "Cornell CIS events listing located from the department events index",
			Timezone:     "America/New_York",
			CalendarName: "Cornell CIS Colloquia",
			ProductID:    "-//cucs-colloq//cornell-cis//EN",
			Duration:     60 * time.Minute,
			Locator: &LocatorConfig{
				TOCURL: "https://www.cis.cornell.edu/events",
				Label:  "Colloquium Series",
			},
			Listing: ListingConfig{
				Item:     ".event",
				Title:    FieldRule{Selector: ".event-title a"},
				Link:     FieldRule{Selector: ".event-title a", Attr: "href"},
				Date:     FieldRule{Selector: ".event-date"},
				Time:     FieldRule{Selector: ".event-time"},
				Speaker:  FieldRule{Selector: ".speaker"},
				Location: FieldRule{Selector: ".event-location"},
			},
			DedupKey: "link",
		},
	}

	reg := make(Registry, len(sources))
	for _, src := range sources {
		if err := src.Validate(); err != nil {
			panic(err)
		}
		reg[src.Name] = src
	}
	return reg
}
