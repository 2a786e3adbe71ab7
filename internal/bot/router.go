package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/red-avtovo/r-trans-bot/internal/chat"
	boterr "github.com/red-avtovo/r-trans-bot/internal/errors"
	"github.com/red-avtovo/r-trans-bot/internal/model"
	"github.com/red-avtovo/r-trans-bot/internal/scraper"
	"github.com/red-avtovo/r-trans-bot/internal/storage"
)

// Route handles one inbound update. It is called in its own goroutine per
// update; any error that escapes a handler is logged and turned into a
// single generic message to the user, never retried.
func (b *Bot) Route(ctx context.Context, upd chat.Update) {
	start := time.Now()

	var (
		kind   string
		chatID int64
		err    error
	)
	switch {
	case upd.Message != nil:
		kind = "message"
		chatID = upd.Message.ChatID
		err = b.handleMessage(ctx, upd.Message)
	case upd.Callback != nil:
		kind = "callback"
		chatID = upd.Callback.ChatID
		err = b.handleCallback(ctx, upd.Callback)
	default:
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
		b.log.Error("error while handling the update", "kind", kind, "error", err)
		if sendErr := b.chat.Send(ctx, chatID, "Something went wrong :(", nil); sendErr != nil {
			b.log.Error("unable to send generic error message", "error", sendErr)
		}
	}

	if b.metrics != nil {
		b.metrics.UpdateTotal.WithLabelValues(kind, status).Inc()
		b.metrics.UpdateDuration.WithLabelValues(kind, status).Observe(time.Since(start).Seconds())
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *chat.Message) error {
	switch {
	case msg.Text == "/start":
		return b.startCommand(ctx, msg)
	case msg.Text == cmdSettingsMenu:
		return b.settingsMenu(ctx, msg.ChatID)
	case strings.Contains(msg.Text, "magnet:"):
		b.tryProcessMagnet(ctx, msg, msg.Text)
		return nil
	case strings.HasPrefix(strings.ToLower(msg.Text), scraper.TrackerPagePrefix):
		b.processTrackerLink(ctx, msg)
		return nil
	}

	// Step-two messages of a dialogue started from a settings button.
	switch b.state(msg.From.ID) {
	case AwaitingDirectoryInput:
		return b.finishDialogue(ctx, msg, b.addDirectoryPerform)
	case AwaitingServerInput:
		return b.finishDialogue(ctx, msg, b.registerServerPerform)
	}

	return b.chat.Send(ctx, msg.ChatID, "I don't know what you mean", settingsKeyboard())
}

// finishDialogue runs a step-two handler and stores the state it returns.
func (b *Bot) finishDialogue(ctx context.Context, msg *chat.Message, perform func(context.Context, *model.User, *chat.Message) (ConvState, error)) error {
	user, err := b.store.GetUser(ctx, msg.From.ID)
	if err != nil {
		return boterr.Wrap(boterr.BOT_PERSISTENCE, fmt.Sprintf("failed to load user %d", msg.From.ID), err)
	}
	next, err := perform(ctx, user, msg)
	if err != nil {
		return err
	}
	b.setState(msg.From.ID, next)
	return nil
}

// tryProcessMagnet runs the magnet intake and deletes the original message
// on success, so raw magnet text does not linger in the chat. Intake errors
// have already been reported to the user and are only logged here.
func (b *Bot) tryProcessMagnet(ctx context.Context, msg *chat.Message, text string) {
	b.log.Debug("processing a magnet link", "chat_id", msg.ChatID)
	user, err := b.store.GetUser(ctx, msg.From.ID)
	if err != nil {
		b.log.Warn("magnet from unregistered user", "user_id", msg.From.ID, "error", err)
		return
	}
	if err := b.ProcessMagnet(ctx, user, msg.ChatID, text); err != nil {
		b.log.Warn("processing of a magnet link failed", "error", err)
		return
	}
	if err := b.chat.Delete(ctx, msg.ChatID, msg.MessageID); err != nil {
		b.log.Warn("unable to delete the original message", "error", err)
	}
}

// processTrackerLink resolves a forum topic link into a magnet and feeds it
// into the normal intake. Without a configured resolver, or when the page
// carries no magnet, the user is asked to paste the magnet manually.
func (b *Bot) processTrackerLink(ctx context.Context, msg *chat.Message) {
	url := strings.ToLower(msg.Text)
	if b.resolver == nil {
		b.send(ctx, msg.ChatID, "Couldn't fetch the link. Try to send the magnet manually")
		return
	}
	b.log.Debug("fetching tracker page", "url", url)
	magnetURI, err := b.resolver.ResolveMagnet(ctx, url)
	if err != nil {
		if errors.Is(err, scraper.ErrNoMagnet) {
			b.send(ctx, msg.ChatID, "Couldn't find a magnet on the page. Try to send the magnet manually")
			return
		}
		b.log.Warn("tracker page fetch failed", "url", url, "error", err)
		b.send(ctx, msg.ChatID, "Couldn't fetch the link. Try to send the magnet manually")
		return
	}
	b.tryProcessMagnet(ctx, msg, magnetURI)
}

func (b *Bot) handleCallback(ctx context.Context, cb *chat.Callback) error {
	// Acknowledge first so the client stops its spinner regardless of how
	// dispatch goes.
	if err := b.chat.AckCallback(ctx, cb.ID); err != nil {
		b.log.Warn("failed to acknowledge callback", "error", err)
	}

	user, err := b.store.GetUser(ctx, cb.From.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return b.chat.Send(ctx, cb.ChatID, "Please run /start first", nil)
		}
		return boterr.Wrap(boterr.BOT_PERSISTENCE, fmt.Sprintf("failed to load user %d", cb.From.ID), err)
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, payloadDownload):
		err = b.StartDownload(ctx, user, cb.ChatID, data)
	case strings.HasPrefix(data, payloadTaskStatus):
		err = b.UpdateTaskStatus(ctx, user, cb, data)
	case strings.HasPrefix(data, payloadTaskRemove):
		err = b.RemoveTask(ctx, user, cb, data)
	default:
		err = b.staticCommand(ctx, user, cb, data)
	}
	if err != nil {
		return err
	}

	// Status and removal edit their message in place; back-to-settings
	// replaces it with the menu. Everything else gets cleaned up.
	switch {
	case strings.HasPrefix(data, payloadTaskStatus),
		strings.HasPrefix(data, payloadTaskRemove),
		data == cmdBackToSettings:
		return nil
	}
	return b.deleteOrHide(ctx, cb.ChatID, cb.MessageID)
}

func (b *Bot) staticCommand(ctx context.Context, user *model.User, cb *chat.Callback, data string) error {
	switch data {
	case cmdListDirectories:
		return b.listDirectories(ctx, user, cb.ChatID)
	case cmdAddDirectory:
		if err := b.addDirectoryPrepare(ctx, cb.ChatID); err != nil {
			return err
		}
		b.setState(user.ID, AwaitingDirectoryInput)
	case cmdResetDirectories:
		return b.resetDirectories(ctx, user, cb.ChatID)
	case cmdServerStats:
		return b.showStats(ctx, user, cb.ChatID)
	case cmdRegisterServer:
		prompted, err := b.registerServerPrepare(ctx, user, cb.ChatID)
		if err != nil {
			return err
		}
		if prompted {
			b.setState(user.ID, AwaitingServerInput)
		}
	case cmdResetServers:
		return b.resetServers(ctx, user, cb.ChatID)
	case cmdBackToSettings:
		return b.backToSettings(ctx, cb.ChatID, cb.MessageID)
	case cmdTaskHide, cmdCancel:
		// No handler: the post-dispatch cleanup removes the message.
	default:
		// Unknown payloads are ignored, matching the cleanup-only behavior
		// of hide and cancel.
		b.log.Debug("unrouted callback payload", "data", data)
	}
	return nil
}

// deleteOrHide removes a message, falling back to blanking it out when the
// platform refuses the deletion (messages older than the platform allows).
func (b *Bot) deleteOrHide(ctx context.Context, chatID int64, messageID int) error {
	if err := b.chat.Delete(ctx, chatID, messageID); err == nil {
		return nil
	}
	return b.chat.Edit(ctx, chatID, messageID, "-- Hidden --", nil)
}

// send is a fire-and-log Send for flows that already reported their outcome.
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.chat.Send(ctx, chatID, text, nil); err != nil {
		b.log.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}

// brokenPayload reports a malformed callback payload: the raw payload is
// logged, the user gets an apology, and dispatch carries on without a crash.
func (b *Bot) brokenPayload(ctx context.Context, chatID int64, data, apology string) error {
	e := boterr.New(boterr.BOT_PROTOCOL, "broken callback payload")
	b.log.Error(e.Message, "data", data)
	return b.chat.Send(ctx, chatID, apology, nil)
}
