// Package scraper provides HTTP fetching and HTML parsing for colloquium listings.
//
// The scraper package fetches department schedule pages and Atom feeds and extracts
// raw listing fields (title, date, time, link, speaker, host, location) using
// configured CSS selectors, direct text nodes and label patterns such as "Speaker:".
// It can also locate the listing page by following a named link from a
// table-of-contents page. Relative links are resolved to absolute URLs.
package scraper
