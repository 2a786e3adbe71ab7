package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/red-avtovo/r-trans-bot/internal/chat"
	"github.com/red-avtovo/r-trans-bot/internal/model"
	"github.com/red-avtovo/r-trans-bot/internal/storage"
	"github.com/red-avtovo/r-trans-bot/internal/transmission"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const testMagnet = "magnet:?xt=urn:btih:e249fe4dc957be4b4ce3ecaac280fdf1c71bc5bb&tr=http%3A%2F%2Fsometracker.com%2Fannounce&dn=ubuntu-mate-16.10-desktop-amd64.iso"

const testMagnetName = "ubuntu-mate-16.10-desktop-amd64.iso"

// fixedNow keeps timestamps in rendered messages deterministic.
var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type sentMessage struct {
	chatID    int64
	messageID int
	text      string
	kb        chat.Keyboard
}

// fakeChat records every outbound call so tests can assert on rendering.
type fakeChat struct {
	mu         sync.Mutex
	sent       []sentMessage
	edited     []sentMessage
	deleted    []int
	acked      []string
	failDelete bool
}

func (f *fakeChat) Send(ctx context.Context, chatID int64, text string, kb chat.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, kb: kb})
	return nil
}

func (f *fakeChat) Edit(ctx context.Context, chatID int64, messageID int, text string, kb chat.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, sentMessage{chatID: chatID, messageID: messageID, text: text, kb: kb})
	return nil
}

func (f *fakeChat) Delete(ctx context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errors.New("message is too old")
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeChat) AckCallback(ctx context.Context, callbackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, callbackID)
	return nil
}

func (f *fakeChat) lastSent(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no messages were sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeChat) lastEdited(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edited) == 0 {
		t.Fatal("no messages were edited")
	}
	return f.edited[len(f.edited)-1]
}

// fakeDaemon stands in for the daemon client. Results are set per test.
type fakeDaemon struct {
	sessionErr error

	addResult *transmission.AddResult
	addErr    error
	addedURI  string
	addedDir  string

	torrent *transmission.Torrent
	getErr  error

	removeErr    error
	removedHash  string
	removedCount int
}

func (f *fakeDaemon) SessionGet(ctx context.Context) error { return f.sessionErr }

func (f *fakeDaemon) TorrentAdd(ctx context.Context, magnetURI, downloadDir string) (*transmission.AddResult, error) {
	f.addedURI = magnetURI
	f.addedDir = downloadDir
	if f.addErr != nil {
		return nil, f.addErr
	}
	return f.addResult, nil
}

func (f *fakeDaemon) TorrentGetByHash(ctx context.Context, hash string) (*transmission.Torrent, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.torrent, nil
}

func (f *fakeDaemon) TorrentRemoveByHash(ctx context.Context, hash string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedHash = hash
	f.removedCount++
	return nil
}

type testEnv struct {
	bot    *Bot
	store  storage.Store
	chat   *fakeChat
	daemon *fakeDaemon
	user   *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemory(testSecret)
	fc := &fakeChat{}
	fd := &fakeDaemon{}

	b := New(store, fc, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Daemon: func(url transmission.TransURL, auth *transmission.BasicAuth) Daemon { return fd },
		Now:    func() time.Time { return fixedNow },
	})

	user, err := store.SaveUser(context.Background(), model.NewUser{
		ID:        42,
		Chat:      100,
		FirstName: "Alice",
		Salt:      "abcdefghijkl",
	})
	if err != nil {
		t.Fatalf("SaveUser() error = %v", err)
	}

	return &testEnv{bot: b, store: store, chat: fc, daemon: fd, user: user}
}

// addServer registers the user's single server.
func (e *testEnv) addServer(t *testing.T) *model.Server {
	t.Helper()
	server, err := e.store.AddServer(context.Background(), e.user, model.NewServer{
		UserID: e.user.ID,
		URL:    "http://localhost:9091",
	})
	if err != nil {
		t.Fatalf("AddServer() error = %v", err)
	}
	return server
}

func (e *testEnv) addDirectory(t *testing.T, alias, path string) *model.DownloadDirectory {
	t.Helper()
	dir, err := e.store.AddDirectory(context.Background(), e.user, alias, path)
	if err != nil {
		t.Fatalf("AddDirectory() error = %v", err)
	}
	return dir
}

// keyboardData flattens keyboard payloads for assertions.
func keyboardData(kb chat.Keyboard) []string {
	var out []string
	for _, row := range kb {
		for _, btn := range row {
			out = append(out, btn.Data)
		}
	}
	return out
}
