// Package event provides the listing and calendar event types for colloquium feeds.
//
// The event package turns loosely formatted scrape results into canonical events:
// it normalizes heterogeneous date and 12-hour clock text into instants attached to
// a fixed department timezone, applies title prefix stripping and "no colloquium"
// filtering, and tracks identifiers already emitted during a run so overlapping
// sources do not produce duplicate entries.
package event
