package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
)

// Locate fetches a table-of-contents page and returns the absolute URL of the
// first navigation link whose visible text equals the configured label.
// A missing link is a configuration error: nothing else can run without it.
func (s *Scraper) Locate(ctx context.Context, loc config.LocatorConfig) (string, error) {
	doc, err := s.fetchDocument(ctx, loc.TOCURL)
	if err != nil {
		return "", err
	}

	selector := loc.Selector
	if selector == "" {
		selector = config.DefaultLocator
	}

	var href string
	doc.Find(selector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != loc.Label {
			return true
		}
		v, ok := a.Attr("href")
		if !ok || strings.TrimSpace(v) == "" {
			return true
		}
		href = v
		return false
	})

	if href == "" {
		return "", event.Errorf(event.ErrConfig, "locating listing page",
			"no link labelled %q on %s", loc.Label, loc.TOCURL)
	}
	return ResolveURL(loc.TOCURL, href)
}
