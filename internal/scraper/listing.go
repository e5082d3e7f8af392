package scraper

import (
	"bytes"
	"context"
	"io"
	"iter"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
)

// Listings fetches pageURL and yields one RawListing per listing block.
// The sequence is one-shot: every range re-fetches the page. Iteration stops
// at the first error, which is yielded with a zero listing.
func (s *Scraper) Listings(ctx context.Context, pageURL string, cfg config.ListingConfig) iter.Seq2[event.RawListing, error] {
	return func(yield func(event.RawListing, error) bool) {
		body, err := s.fetch(ctx, pageURL)
		if err != nil {
			yield(event.RawListing{}, err)
			return
		}
		for l, err := range parseListings(bytes.NewReader(body), pageURL, cfg) {
			if !yield(l, err) || err != nil {
				return
			}
		}
	}
}

// parseListings extracts listings from HTML
func parseListings(r io.Reader, pageURL string, cfg config.ListingConfig) iter.Seq2[event.RawListing, error] {
	return func(yield func(event.RawListing, error) bool) {
		doc, err := goquery.NewDocumentFromReader(r)
		if err != nil {
			yield(event.RawListing{}, event.Wrap(event.ErrStructure, "parsing HTML from "+pageURL, err))
			return
		}

		x, err := newExtractor(cfg, pageURL)
		if err != nil {
			yield(event.RawListing{}, err)
			return
		}

		items := doc.Find(cfg.Item)
		var details *goquery.Selection
		if cfg.Detail != "" {
			details = doc.Find(cfg.Detail)
		}

		for i := range items.Nodes {
			var detail *goquery.Selection
			if details != nil {
				if i >= details.Length() {
					yield(event.RawListing{}, event.Errorf(event.ErrStructure, "extracting listing",
						"listing %d has no %q detail element", i, cfg.Detail))
					return
				}
				detail = details.Eq(i)
			}

			l, err := x.listing(items.Eq(i), detail)
			if !yield(l, err) || err != nil {
				return
			}
		}
	}
}

// extractor applies one ListingConfig to listing selections
type extractor struct {
	cfg      config.ListingConfig
	base     string
	patterns map[string]*regexp.Regexp
}

func newExtractor(cfg config.ListingConfig, pageURL string) (*extractor, error) {
	x := &extractor{
		cfg:      cfg,
		base:     pageURL,
		patterns: make(map[string]*regexp.Regexp),
	}
	if cfg.BaseURL != "" {
		x.base = cfg.BaseURL
	}

	rules := []config.FieldRule{cfg.Title, cfg.Link, cfg.Date, cfg.Time, cfg.Speaker,
		cfg.SpeakerURL, cfg.Host, cfg.Affiliation, cfg.Location}
	for _, rule := range rules {
		if rule.Pattern == "" || x.patterns[rule.Pattern] != nil {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, event.Wrap(event.ErrConfig, "compiling field pattern", err)
		}
		if re.NumSubexp() < 1 {
			return nil, event.Errorf(event.ErrConfig, "compiling field pattern", "%q has no capture group", rule.Pattern)
		}
		x.patterns[rule.Pattern] = re
	}
	return x, nil
}

func (x *extractor) listing(item, detail *goquery.Selection) (event.RawListing, error) {
	var l event.RawListing

	title, err := x.field(x.cfg.Title, item, detail)
	if err != nil {
		return l, err
	}
	if title == nil {
		return l, event.Errorf(event.ErrStructure, "extracting listing", "no title element (%q)", x.cfg.Title.Selector)
	}
	l.Title = *title

	link, err := x.field(x.cfg.Link, item, detail)
	if err != nil {
		return l, err
	}
	if link == nil {
		return l, event.Errorf(event.ErrStructure, "extracting listing", "no link for %q", l.Title)
	}
	if l.Link, err = ResolveURL(x.base, *link); err != nil {
		return l, err
	}

	optional := []struct {
		rule config.FieldRule
		dst  **string
	}{
		{x.cfg.Speaker, &l.Speaker},
		{x.cfg.SpeakerURL, &l.SpeakerURL},
		{x.cfg.Host, &l.Host},
		{x.cfg.Affiliation, &l.Affiliation},
	}
	for _, o := range optional {
		if *o.dst, err = x.field(o.rule, item, detail); err != nil {
			return l, err
		}
	}

	// A missing date is left empty: placeholder rows often carry none and
	// are filtered by title before any date is parsed.
	if v, err := x.field(x.cfg.Date, item, detail); err != nil {
		return l, err
	} else if v != nil {
		l.Date = *v
	}
	if v, err := x.field(x.cfg.Time, item, detail); err != nil {
		return l, err
	} else if v != nil {
		l.Time = *v
	}
	if v, err := x.field(x.cfg.Location, item, detail); err != nil {
		return l, err
	} else if v != nil {
		l.Location = *v
	}

	if l.SpeakerURL != nil {
		resolved, err := ResolveURL(x.base, *l.SpeakerURL)
		if err != nil {
			return l, err
		}
		l.SpeakerURL = &resolved
	}

	if l.Affiliation != nil {
		aff := *l.Affiliation
		if strings.HasPrefix(aff, "(") && strings.HasSuffix(aff, ")") {
			aff = aff[1 : len(aff)-1]
			l.Affiliation = &aff
		}
		if l.Speaker != nil {
			speaker := *l.Speaker + ", " + *l.Affiliation
			l.Speaker = &speaker
		}
	}

	if x.cfg.CombineDateTime && l.Date != "" && l.Time != "" {
		l.Date = l.Date + " " + l.Time
		l.Time = ""
	}
	return l, nil
}

// field applies rule and returns the trimmed value, or nil when absent
func (x *extractor) field(rule config.FieldRule, item, detail *goquery.Selection) (*string, error) {
	if rule.IsZero() {
		return nil, nil
	}

	sel := item
	if rule.Scope == "detail" {
		if detail == nil {
			return nil, event.Errorf(event.ErrConfig, "extracting field", "detail scope used without a detail selector")
		}
		sel = detail
	}
	if rule.Selector != "" {
		sel = sel.Find(rule.Selector).First()
	}
	if sel.Length() == 0 {
		return nil, nil
	}

	var value string
	switch {
	case rule.Attr != "":
		v, ok := sel.Attr(rule.Attr)
		if !ok {
			return nil, nil
		}
		value = v
	case rule.Node != nil:
		nodes := ownText(sel)
		i := *rule.Node
		if i < 0 {
			i += len(nodes)
		}
		if i < 0 || i >= len(nodes) {
			return nil, nil
		}
		value = nodes[i]
	case rule.Markup:
		v, err := sel.Html()
		if err != nil {
			return nil, event.Wrap(event.ErrStructure, "rendering listing markup", err)
		}
		value = v
	default:
		value = textWithBreaks(sel)
	}

	if rule.Pattern != "" {
		m := x.patterns[rule.Pattern].FindStringSubmatch(value)
		if m == nil {
			return nil, nil
		}
		value = m[1]
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	return &value, nil
}

// ownText returns the trimmed, non-empty direct text nodes of the first node
// in sel
func ownText(sel *goquery.Selection) []string {
	var out []string
	sel.First().Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) != "#text" {
			return
		}
		if t := strings.TrimSpace(c.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "dt": true, "dd": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// textWithBreaks renders the text of sel with <br> and block boundaries
// as newlines, so label patterns can stop at the end of a visual line.
func textWithBreaks(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "br" {
				b.WriteByte('\n')
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
