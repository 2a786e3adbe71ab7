// internal/scraper/client.go
package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Client fetches forum topic pages and extracts the magnet link from the
// page markup. It implements Resolver.
type Client struct {
	hc *http.Client
}

// NewClient creates a page-fetching resolver with conservative timeouts.
// Tracker pages are slow; the overall request timeout is generous while the
// dial stays short so a dead host fails fast.
func NewClient() *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
	}
	return &Client{
		hc: &http.Client{Transport: transport, Timeout: 60 * time.Second},
	}
}

// ResolveMagnet fetches the page and returns the href of its magnet anchor.
// A page without one yields ErrNoMagnet.
func (c *Client) ResolveMagnet(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page fetch failed: %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	if magnet, ok := findMagnetAnchor(doc); ok {
		return magnet, nil
	}
	return "", ErrNoMagnet
}

// findMagnetAnchor walks the document for the first anchor carrying the
// magnet-link class, the way tracker pages mark their download link.
func findMagnetAnchor(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "a" {
		var href string
		var isMagnetLink bool
		for _, attr := range n.Attr {
			switch attr.Key {
			case "href":
				href = attr.Val
			case "class":
				for _, class := range strings.Fields(attr.Val) {
					if class == "magnet-link" {
						isMagnetLink = true
					}
				}
			}
		}
		if isMagnetLink && href != "" {
			return href, true
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if magnet, ok := findMagnetAnchor(child); ok {
			return magnet, true
		}
	}
	return "", false
}
