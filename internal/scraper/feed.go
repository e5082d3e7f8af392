package scraper

import (
	"bytes"
	"context"
	"iter"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
)

// FeedListings fetches an Atom feed and yields one RawListing per entry.
// Each entry's link is fetched in turn and DetailPattern pulls the date and
// location out of that page. Like Listings, the sequence is one-shot.
func (s *Scraper) FeedListings(ctx context.Context, feed config.FeedConfig) iter.Seq2[event.RawListing, error] {
	return func(yield func(event.RawListing, error) bool) {
		detail, err := regexp.Compile(feed.DetailPattern)
		if err != nil {
			yield(event.RawListing{}, event.Wrap(event.ErrConfig, "compiling feed detail pattern", err))
			return
		}
		if detail.NumSubexp() < 2 {
			yield(event.RawListing{}, event.Errorf(event.ErrConfig, "compiling feed detail pattern",
				"%q needs date and location groups", feed.DetailPattern))
			return
		}

		body, err := s.fetch(ctx, feed.URL)
		if err != nil {
			yield(event.RawListing{}, err)
			return
		}
		parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
		if err != nil {
			yield(event.RawListing{}, event.Wrap(event.ErrStructure, "parsing feed "+feed.URL, err))
			return
		}

		for _, item := range parsed.Items {
			l, err := s.feedListing(ctx, item, detail)
			if !yield(l, err) || err != nil {
				return
			}
		}
	}
}

func (s *Scraper) feedListing(ctx context.Context, item *gofeed.Item, detail *regexp.Regexp) (event.RawListing, error) {
	l := event.RawListing{
		Title: strings.TrimSpace(item.Title),
		Link:  strings.TrimSpace(item.Link),
		Stamp: strings.TrimSpace(item.Updated),
	}
	if l.Title == "" || l.Link == "" {
		return l, event.Errorf(event.ErrStructure, "reading feed entry", "entry %q lacks title or link", item.GUID)
	}
	if author := feedAuthor(item); author != "" {
		l.Speaker = &author
	}

	page, err := s.fetch(ctx, l.Link)
	if err != nil {
		return l, err
	}
	m := detail.FindSubmatch(page)
	if m == nil {
		return l, event.Errorf(event.ErrStructure, "reading event page", "no date/location block on %s", l.Link)
	}
	l.Date = strings.TrimSpace(string(m[1]))
	l.Location = strings.TrimSpace(string(m[2]))
	return l, nil
}

func feedAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	return ""
}
