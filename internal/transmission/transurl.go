// internal/transmission/transurl.go
package transmission

import "strings"

// TransURL is the base URL of a Transmission daemon, without the
// /transmission suffix.
type TransURL string

// FromWebURL derives the base URL from a pasted web UI address such as
// "http://localhost:9091/transmission/web/#confirm". Users register servers
// by pasting exactly that kind of link.
func FromWebURL(webURL string) (TransURL, bool) {
	lowered := strings.ToLower(webURL)
	base, _, found := strings.Cut(lowered, "/transmission/web")
	if !found {
		return TransURL(lowered), base != ""
	}
	return TransURL(base), base != ""
}

// RPCURL returns the daemon RPC endpoint.
func (u TransURL) RPCURL() string {
	return string(u) + "/transmission/rpc"
}

// Base returns the bare base URL.
func (u TransURL) Base() string {
	return string(u)
}
