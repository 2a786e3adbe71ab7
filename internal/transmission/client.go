// internal/transmission/client.go
// Package transmission implements the slice of the Transmission RPC surface
// the bot consumes: session health, adding a torrent, querying a torrent by
// hash and removing one with its data.
package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// sessionHeader carries the CSRF token the daemon hands out on a 409.
const sessionHeader = "X-Transmission-Session-Id"

// BasicAuth is the credential pair sent as HTTP basic auth.
type BasicAuth struct {
	User     string
	Password string
}

// Client talks to one Transmission daemon. Clients are cheap and short-lived:
// the orchestrator builds one per call, carrying the decrypted credential for
// that call only.
type Client struct {
	rpcURL     string
	auth       *BasicAuth
	httpClient *http.Client
	sessionID  string
}

// New creates a client for the daemon behind url. auth may be nil for open
// daemons.
func New(url TransURL, auth *BasicAuth) *Client {
	return &Client{
		rpcURL: url.RPCURL(),
		auth:   auth,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// request/response envelopes of the RPC protocol.
type rpcRequest struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments,omitempty"`
}

type rpcResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

// call posts one RPC request, replaying it once when the daemon demands a
// fresh session id via 409.
func (c *Client) call(ctx context.Context, method string, args, result any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusConflict {
		c.sessionID = resp.Header.Get(sessionHeader)
		resp.Body.Close()
		resp, err = c.post(ctx, body)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("daemon error (status %d): %s", resp.StatusCode, payload)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if envelope.Result != "success" {
		return fmt.Errorf("daemon rejected %s: %s", method, envelope.Result)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Arguments, result); err != nil {
			return fmt.Errorf("failed to decode %s arguments: %w", method, err)
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set(sessionHeader, c.sessionID)
	}
	if c.auth != nil {
		req.SetBasicAuth(c.auth.User, c.auth.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// SessionGet checks that the daemon is reachable and the credential works.
func (c *Client) SessionGet(ctx context.Context) error {
	return c.call(ctx, "session-get", nil, nil)
}

// TorrentAdd submits a magnet URI for download into downloadDir.
// The returned value distinguishes a fresh acceptance from a duplicate.
func (c *Client) TorrentAdd(ctx context.Context, magnetURI, downloadDir string) (*AddResult, error) {
	args := torrentAddArgs{Filename: magnetURI, DownloadDir: downloadDir}
	var result addResponse
	if err := c.call(ctx, "torrent-add", args, &result); err != nil {
		return nil, err
	}
	switch {
	case result.Added != nil:
		return &AddResult{Torrent: *result.Added}, nil
	case result.Duplicate != nil:
		return &AddResult{Torrent: *result.Duplicate, Duplicate: true}, nil
	default:
		return nil, fmt.Errorf("torrent-add returned neither added nor duplicate")
	}
}

// TorrentGetByHash looks up one torrent by content hash.
// A missing torrent is (nil, nil), not an error.
func (c *Client) TorrentGetByHash(ctx context.Context, hash string) (*Torrent, error) {
	args := torrentGetArgs{
		IDs:    []string{hash},
		Fields: []string{"id", "name", "hashString", "percentDone"},
	}
	var result torrentGetResponse
	if err := c.call(ctx, "torrent-get", args, &result); err != nil {
		return nil, err
	}
	if len(result.Torrents) == 0 {
		return nil, nil
	}
	t := result.Torrents[0]
	return &t, nil
}

// TorrentRemoveByHash removes a torrent and its downloaded data.
func (c *Client) TorrentRemoveByHash(ctx context.Context, hash string) error {
	args := torrentRemoveArgs{IDs: []string{hash}, DeleteLocalData: true}
	return c.call(ctx, "torrent-remove", args, nil)
}
