// internal/magnet/magnet.go
// Package magnet parses and serializes magnet URIs.
// It produces two serialized forms: a short form without the display name,
// used when submitting to the torrent daemon, and a full form that keeps the
// display name for the persisted copy.
package magnet

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Scheme prefix every magnet URI starts with.
const prefix = "magnet:?"

// Parse errors returned by Parse. Find treats any of them as "no magnet".
var (
	ErrMissingExactTopic    = errors.New("no xt parameter found")
	ErrAmbiguousExactTopic  = errors.New("more than one xt parameter found")
	ErrAmbiguousDisplayName = errors.New("more than one dn parameter found")
)

// Link is a parsed magnet URI. It is a transient value: only its serialized
// full form is ever persisted, and it is re-parsed from that form on every use.
type Link struct {
	// XT is the exact topic, "urn:btih:<hash>". Exactly one per link.
	XT string
	// TR holds announce URLs in input order, duplicates retained.
	TR []string
	// DN is the display name; when the URI carries no dn parameter it is the
	// content hash.
	DN string
}

// Parse extracts the xt, tr and dn query parameters from a magnet URI.
// It fails when zero or more than one xt is present, or when more than one dn
// is present. A missing dn falls back to the content hash.
func Parse(text string) (*Link, error) {
	raw, ok := strings.CutPrefix(text, prefix)
	if !ok {
		return nil, fmt.Errorf("not a magnet URI: %q", text)
	}

	var xts, trs, dns []string
	for _, pair := range strings.Split(raw, "&") {
		key, value, _ := strings.Cut(pair, "=")
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("malformed query parameter %q: %w", pair, err)
		}
		switch key {
		case "xt":
			xts = append(xts, decoded)
		case "tr":
			trs = append(trs, decoded)
		case "dn":
			dns = append(dns, decoded)
		}
	}

	var xt string
	switch len(xts) {
	case 0:
		return nil, ErrMissingExactTopic
	case 1:
		xt = xts[0]
	default:
		return nil, ErrAmbiguousExactTopic
	}

	var dn string
	switch len(dns) {
	case 0:
		dn = hashFromXT(xt)
	case 1:
		dn = dns[0]
	default:
		return nil, ErrAmbiguousDisplayName
	}

	return &Link{XT: xt, TR: trs, DN: dn}, nil
}

// Find scans free text line by line, then token by token, and parses the first
// token that looks like a magnet URI. A parse failure on that token means no
// link was found; scanning does not continue to a later candidate.
func Find(text string) (*Link, bool) {
	for _, line := range strings.Split(text, "\n") {
		for _, token := range strings.Split(line, " ") {
			if !strings.HasPrefix(token, prefix) {
				continue
			}
			link, err := Parse(token)
			if err != nil {
				return nil, false
			}
			return link, true
		}
	}
	return nil, false
}

// Hash returns the content hash: the third colon-delimited segment of the
// exact topic ("urn" / "btih" / hash).
func (l *Link) Hash() string {
	return hashFromXT(l.XT)
}

func hashFromXT(xt string) string {
	parts := strings.Split(xt, ":")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// ShortLink re-emits the URI without the display name. The daemon does not
// need the name, and the submission payload stays minimal.
// The xt value goes out unescaped: its colons are legal in a query value,
// and daemons expect the urn:btih form verbatim.
func (l *Link) ShortLink() string {
	return prefix + "xt=" + l.XT + "&" + l.trackerQuery()
}

// FullLink re-emits the URI with the display name first. This is the form the
// reference store keeps, so the name survives for later rendering.
// As in ShortLink, xt stays unescaped.
func (l *Link) FullLink() string {
	return prefix + "dn=" + url.QueryEscape(l.DN) + "&xt=" + l.XT + "&" + l.trackerQuery()
}

func (l *Link) trackerQuery() string {
	values := url.Values{}
	for _, tr := range l.TR {
		values.Add("tr", tr)
	}
	return values.Encode()
}
