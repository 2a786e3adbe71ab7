// internal/bot/bot.go
// Package bot routes inbound chat updates and orchestrates downloads: magnet
// intake, submission to the torrent daemon, status polling and removal, plus
// the settings dialogues for servers and directories.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/red-avtovo/r-trans-bot/internal/chat"
	"github.com/red-avtovo/r-trans-bot/internal/event"
	"github.com/red-avtovo/r-trans-bot/internal/metrics"
	"github.com/red-avtovo/r-trans-bot/internal/model"
	"github.com/red-avtovo/r-trans-bot/internal/scraper"
	"github.com/red-avtovo/r-trans-bot/internal/storage"
	"github.com/red-avtovo/r-trans-bot/internal/transmission"
)

// Daemon is the slice of the daemon client the orchestrator calls. It is an
// interface so tests can stand in a fake without an HTTP server.
type Daemon interface {
	SessionGet(ctx context.Context) error
	TorrentAdd(ctx context.Context, magnetURI, downloadDir string) (*transmission.AddResult, error)
	TorrentGetByHash(ctx context.Context, hash string) (*transmission.Torrent, error)
	TorrentRemoveByHash(ctx context.Context, hash string) error
}

// DaemonFactory builds a daemon client for one call. A fresh client is built
// per call so the decrypted credential lives only as long as the call.
type DaemonFactory func(url transmission.TransURL, auth *transmission.BasicAuth) Daemon

func defaultDaemonFactory(url transmission.TransURL, auth *transmission.BasicAuth) Daemon {
	return transmission.New(url, auth)
}

// Options carries the optional collaborators of a Bot.
type Options struct {
	// Resolver turns forum topic links into magnet URIs. Nil disables the
	// forum link flow.
	Resolver scraper.Resolver
	// Events receives task lifecycle events. Nil means no publishing.
	Events event.Publisher
	// Metrics receives update counters. Nil disables instrumentation.
	Metrics *metrics.Metrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Daemon overrides the daemon client constructor, used by tests.
	Daemon DaemonFactory
	// Now overrides the clock used in status rendering, used by tests.
	Now func() time.Time
}

// Bot holds the collaborators shared by all update handlers. One Bot serves
// all users; per-user conversation state lives in the states map.
type Bot struct {
	store    storage.Store
	chat     chat.Client
	resolver scraper.Resolver
	events   event.Publisher
	metrics  *metrics.Metrics
	log      *slog.Logger
	daemon   DaemonFactory
	now      func() time.Time

	mu     sync.Mutex
	states map[int64]ConvState
}

// New creates a Bot over the given store and chat client.
func New(store storage.Store, chatClient chat.Client, opts Options) *Bot {
	b := &Bot{
		store:    store,
		chat:     chatClient,
		resolver: opts.Resolver,
		events:   opts.Events,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		daemon:   opts.Daemon,
		now:      opts.Now,
		states:   make(map[int64]ConvState),
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	if b.daemon == nil {
		b.daemon = defaultDaemonFactory
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// daemonFor builds a daemon client for one server. The credential comes out
// of the store already decrypted and is not retained past the client.
func (b *Bot) daemonFor(server *model.Server) Daemon {
	var auth *transmission.BasicAuth
	if a, ok := server.Auth(); ok {
		auth = &transmission.BasicAuth{User: a.Username, Password: a.Password}
	}
	return &instrumentedDaemon{
		next:    b.daemon(transmission.TransURL(server.URL), auth),
		metrics: b.metrics,
	}
}

// instrumentedDaemon counts and times daemon RPC calls per method.
type instrumentedDaemon struct {
	next    Daemon
	metrics *metrics.Metrics
}

func (d *instrumentedDaemon) observe(method string, start time.Time, err error) {
	if d.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	d.metrics.DaemonRequestTotal.WithLabelValues(method, status).Inc()
	d.metrics.DaemonRequestDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
}

func (d *instrumentedDaemon) SessionGet(ctx context.Context) error {
	start := time.Now()
	err := d.next.SessionGet(ctx)
	d.observe("session-get", start, err)
	return err
}

func (d *instrumentedDaemon) TorrentAdd(ctx context.Context, magnetURI, downloadDir string) (*transmission.AddResult, error) {
	start := time.Now()
	result, err := d.next.TorrentAdd(ctx, magnetURI, downloadDir)
	d.observe("torrent-add", start, err)
	return result, err
}

func (d *instrumentedDaemon) TorrentGetByHash(ctx context.Context, hash string) (*transmission.Torrent, error) {
	start := time.Now()
	torrent, err := d.next.TorrentGetByHash(ctx, hash)
	d.observe("torrent-get", start, err)
	return torrent, err
}

func (d *instrumentedDaemon) TorrentRemoveByHash(ctx context.Context, hash string) error {
	start := time.Now()
	err := d.next.TorrentRemoveByHash(ctx, hash)
	d.observe("torrent-remove", start, err)
	return err
}

func (b *Bot) publishEvent(eventType string, publish func() error) {
	status := "ok"
	if err := publish(); err != nil {
		status = "error"
		b.log.Warn("failed to publish event", "event_type", eventType, "error", err)
	}
	if b.metrics != nil {
		b.metrics.EventPublishTotal.WithLabelValues(eventType, status).Inc()
	}
}

func (b *Bot) publishTaskCreated(ctx context.Context, task *model.DownloadTask) {
	if b.events == nil {
		return
	}
	b.publishEvent("task_created", func() error {
		return b.events.PublishTaskCreated(ctx, *task)
	})
}

func (b *Bot) publishTaskRemoved(ctx context.Context, userID int64, hash string) {
	if b.events == nil {
		return
	}
	b.publishEvent("task_removed", func() error {
		return b.events.PublishTaskRemoved(ctx, userID, hash)
	})
}
