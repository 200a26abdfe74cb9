// Package scraper drives a headless browser to read page metadata and to
// render vector icons that the native decoders cannot handle.
package scraper

import "context"

// Scraper fetches metadata for a page.
type Scraper interface {
	// ScrapeMetadata returns the page title and meta description.
	ScrapeMetadata(ctx context.Context, url string) (title string, description string, err error)
}
