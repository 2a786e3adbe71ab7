// internal/scraper/scraper.go
// Package scraper defines the contract with the forum-page scraping service.
// The service itself is an external collaborator; the bot only needs "give
// me the magnet link on this page, if any".
package scraper

import (
	"context"
	"errors"
)

// ErrNoMagnet reports that the page was fetched but carried no magnet link.
var ErrNoMagnet = errors.New("no magnet link on page")

// Resolver turns a forum topic URL into the raw magnet URI found on the
// page. Implementations fetch and scrape; any fetch failure surfaces as an
// ordinary error and the user is asked to paste the magnet manually.
type Resolver interface {
	ResolveMagnet(ctx context.Context, pageURL string) (string, error)
}

// TrackerPagePrefix matches the forum topic links the router forwards to the
// resolver.
const TrackerPagePrefix = "https://rutracker.org/forum/viewtopic.php?t="
