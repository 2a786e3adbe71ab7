package transmission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeDaemon is a minimal Transmission RPC endpoint with the 409 session
// handshake and canned per-method responses.
type fakeDaemon struct {
	t         *testing.T
	sessionID string
	requests  []rpcRequest
	respond   func(method string, args json.RawMessage) (string, any)
	wantUser  string
	wantPass  string
}

func (d *fakeDaemon) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.wantUser != "" {
			user, pass, ok := r.BasicAuth()
			if !ok || user != d.wantUser || pass != d.wantPass {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		if r.Header.Get(sessionHeader) != d.sessionID {
			w.Header().Set(sessionHeader, d.sessionID)
			w.WriteHeader(http.StatusConflict)
			return
		}
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			d.t.Errorf("fake daemon: bad request body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		d.requests = append(d.requests, rpcRequest{Method: req.Method})
		result, args := d.respond(req.Method, req.Arguments)
		payload := map[string]any{"result": result}
		if args != nil {
			payload["arguments"] = args
		}
		json.NewEncoder(w).Encode(payload)
	}
}

func newClient(t *testing.T, d *fakeDaemon, auth *BasicAuth) (*Client, func()) {
	t.Helper()
	d.t = t
	srv := httptest.NewServer(d.handler())
	c := New(TransURL(srv.URL), auth)
	c.rpcURL = srv.URL // the fake serves at the root, not /transmission/rpc
	return c, srv.Close
}

func TestSessionGetHandshake(t *testing.T) {
	d := &fakeDaemon{
		sessionID: "token-1",
		respond: func(method string, _ json.RawMessage) (string, any) {
			if method != "session-get" {
				t.Errorf("method = %v, want session-get", method)
			}
			return "success", nil
		},
	}
	c, done := newClient(t, d, nil)
	defer done()

	if err := c.SessionGet(context.Background()); err != nil {
		t.Fatalf("SessionGet() error = %v", err)
	}
	// The first attempt hits the 409; only the replay reaches the method.
	if len(d.requests) != 1 {
		t.Errorf("daemon saw %d decoded requests, want 1", len(d.requests))
	}
}

func TestBasicAuthIsSent(t *testing.T) {
	d := &fakeDaemon{
		sessionID: "token-1",
		wantUser:  "admin",
		wantPass:  "hunter2",
		respond: func(string, json.RawMessage) (string, any) {
			return "success", nil
		},
	}
	c, done := newClient(t, d, &BasicAuth{User: "admin", Password: "hunter2"})
	defer done()

	if err := c.SessionGet(context.Background()); err != nil {
		t.Fatalf("SessionGet() with auth error = %v", err)
	}
}

func TestTorrentAdd(t *testing.T) {
	d := &fakeDaemon{
		respond: func(method string, args json.RawMessage) (string, any) {
			var got torrentAddArgs
			if err := json.Unmarshal(args, &got); err != nil {
				t.Fatalf("bad torrent-add args: %v", err)
			}
			if got.DownloadDir != "/downloads/films" {
				t.Errorf("download-dir = %v, want /downloads/films", got.DownloadDir)
			}
			return "success", map[string]any{
				"torrent-added": map[string]any{"id": 7, "name": "ubuntu.iso", "hashString": "abc"},
			}
		},
	}
	c, done := newClient(t, d, nil)
	defer done()

	res, err := c.TorrentAdd(context.Background(), "magnet:?xt=urn:btih:abc&", "/downloads/films")
	if err != nil {
		t.Fatalf("TorrentAdd() error = %v", err)
	}
	if res.Duplicate {
		t.Error("TorrentAdd() Duplicate = true, want false")
	}
	if res.Torrent.Name != "ubuntu.iso" {
		t.Errorf("TorrentAdd() name = %v, want ubuntu.iso", res.Torrent.Name)
	}
}

func TestTorrentAddDuplicate(t *testing.T) {
	d := &fakeDaemon{
		respond: func(string, json.RawMessage) (string, any) {
			return "success", map[string]any{
				"torrent-duplicate": map[string]any{"id": 7, "name": "ubuntu.iso", "hashString": "abc"},
			}
		},
	}
	c, done := newClient(t, d, nil)
	defer done()

	res, err := c.TorrentAdd(context.Background(), "magnet:?xt=urn:btih:abc&", "/x")
	if err != nil {
		t.Fatalf("TorrentAdd() error = %v", err)
	}
	if !res.Duplicate {
		t.Error("TorrentAdd() Duplicate = false, want true")
	}
}

func TestTorrentGetByHash(t *testing.T) {
	d := &fakeDaemon{
		respond: func(method string, args json.RawMessage) (string, any) {
			var got torrentGetArgs
			if err := json.Unmarshal(args, &got); err != nil {
				t.Fatalf("bad torrent-get args: %v", err)
			}
			if len(got.IDs) != 1 || got.IDs[0] != "abc" {
				t.Errorf("ids = %v, want [abc]", got.IDs)
			}
			return "success", map[string]any{
				"torrents": []map[string]any{
					{"id": 7, "name": "ubuntu.iso", "hashString": "abc", "percentDone": 0.42},
				},
			}
		},
	}
	c, done := newClient(t, d, nil)
	defer done()

	torrent, err := c.TorrentGetByHash(context.Background(), "abc")
	if err != nil {
		t.Fatalf("TorrentGetByHash() error = %v", err)
	}
	if torrent == nil {
		t.Fatal("TorrentGetByHash() = nil, want torrent")
	}
	if torrent.PercentDone != 0.42 {
		t.Errorf("PercentDone = %v, want 0.42", torrent.PercentDone)
	}
}

func TestTorrentGetByHashMissing(t *testing.T) {
	d := &fakeDaemon{
		respond: func(string, json.RawMessage) (string, any) {
			return "success", map[string]any{"torrents": []any{}}
		},
	}
	c, done := newClient(t, d, nil)
	defer done()

	torrent, err := c.TorrentGetByHash(context.Background(), "missing")
	if err != nil {
		t.Fatalf("TorrentGetByHash() error = %v", err)
	}
	if torrent != nil {
		t.Errorf("TorrentGetByHash() = %+v, want nil", torrent)
	}
}

func TestTorrentRemoveByHash(t *testing.T) {
	d := &fakeDaemon{
		respond: func(method string, args json.RawMessage) (string, any) {
			var got torrentRemoveArgs
			if err := json.Unmarshal(args, &got); err != nil {
				t.Fatalf("bad torrent-remove args: %v", err)
			}
			if !got.DeleteLocalData {
				t.Error("delete-local-data = false, want true")
			}
			return "success", nil
		},
	}
	c, done := newClient(t, d, nil)
	defer done()

	if err := c.TorrentRemoveByHash(context.Background(), "abc"); err != nil {
		t.Fatalf("TorrentRemoveByHash() error = %v", err)
	}
}

func TestDaemonFailureResult(t *testing.T) {
	d := &fakeDaemon{
		respond: func(string, json.RawMessage) (string, any) {
			return "unrecognized method", nil
		},
	}
	c, done := newClient(t, d, nil)
	defer done()

	if err := c.SessionGet(context.Background()); err == nil {
		t.Error("SessionGet() on failure result succeeded, want error")
	}
}
