package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
)

const (
	UserAgent = "cucs-colloq/1.0 (github.com/Cornell-CIS-Slack/cucs-colloq)"
	Timeout   = 30 * time.Second
)

// Scraper handles fetching and parsing colloquium pages and feeds
type Scraper struct {
	client    *http.Client
	userAgent string
}

// New creates a new Scraper instance
func New() *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
		userAgent: UserAgent,
	}
}

// WithClient replaces the HTTP client
func (s *Scraper) WithClient(c *http.Client) *Scraper {
	s.client = c
	return s
}

// fetch returns the body of pageURL. Any transport or status failure is an
// event.ErrFetch.
func (s *Scraper) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	op := "fetching " + pageURL

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, event.Wrap(event.ErrFetch, op, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, event.Wrap(event.ErrFetch, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, event.Errorf(event.ErrFetch, op, "unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, event.Wrap(event.ErrFetch, op, fmt.Errorf("reading body: %w", err))
	}
	return body, nil
}

// fetchDocument fetches pageURL and parses it as HTML
func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, event.Wrap(event.ErrStructure, "parsing HTML from "+pageURL, err)
	}
	return doc, nil
}

// ResolveURL makes link absolute against base. Links that already carry a
// scheme are returned unchanged.
func ResolveURL(base, link string) (string, error) {
	link = strings.TrimSpace(link)
	if strings.Contains(link, "://") {
		return link, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", event.Wrap(event.ErrConfig, "parsing base URL "+base, err)
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", event.Wrap(event.ErrStructure, "parsing link "+link, err)
	}
	return b.ResolveReference(ref).String(), nil
}
