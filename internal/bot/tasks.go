package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/red-avtovo/r-trans-bot/internal/chat"
	boterr "github.com/red-avtovo/r-trans-bot/internal/errors"
	"github.com/red-avtovo/r-trans-bot/internal/magnet"
	"github.com/red-avtovo/r-trans-bot/internal/model"
	"github.com/red-avtovo/r-trans-bot/internal/storage"
)

// ProcessMagnet is the magnet intake: find a link in the text, check the
// user has a server and at least one directory, register the magnet and
// offer one button per directory. The button payload carries the magnet
// reference and the directory ordinal, never the magnet itself.
func (b *Bot) ProcessMagnet(ctx context.Context, user *model.User, chatID int64, text string) error {
	link, found := magnet.Find(text)
	if !found {
		b.send(ctx, chatID, "Sorry. Couldn't handle this magnet. Try later :(")
		return boterr.New(boterr.BOT_PARSE, fmt.Sprintf("couldn't parse magnet from text: %s", text))
	}

	servers, err := b.store.ListServers(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to list servers: %w", err)
	}
	if len(servers) == 0 {
		if err := b.chat.Send(ctx, chatID, "No Servers found! Please register one first!", registerServerKeyboard()); err != nil {
			return err
		}
		return boterr.New(boterr.BOT_PRECONDITION, "no servers registered")
	}

	dirs, err := b.store.ListDirectories(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to list directories: %w", err)
	}
	if len(dirs) == 0 {
		if err := b.chat.Send(ctx, chatID, "No Directories found! Please add one first!", addDirectoryKeyboard()); err != nil {
			return err
		}
		return boterr.New(boterr.BOT_PRECONDITION, "no directories registered")
	}

	magnetID, err := b.store.RegisterMagnet(ctx, user, link.FullLink())
	if err != nil {
		return fmt.Errorf("failed to register magnet: %w", err)
	}

	kb := make(chat.Keyboard, 0, len(dirs)+1)
	for _, dir := range dirs {
		kb = append(kb, chat.Row(chat.Button{
			Label: dir.Alias,
			Data:  fmt.Sprintf("%s%s:%d", payloadDownload, magnetID, dir.Ordinal),
		}))
	}
	kb = append(kb, chat.Row(chat.Button{Label: cmdCancelLabel, Data: cmdCancel}))

	return b.chat.Send(ctx, chatID, link.DN+"\nChoose directory to download", kb)
}

// StartDownload handles a download:<magnetRef>:<ordinal> button press: it
// resolves the stored magnet and directory, submits the short form to the
// daemon and records a task only once the daemon confirmed the add.
func (b *Bot) StartDownload(ctx context.Context, user *model.User, chatID int64, data string) error {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return b.brokenPayload(ctx, chatID, data, "We messed up. Can't start downloading :(")
	}
	magnetID, err := uuid.Parse(parts[1])
	if err != nil {
		return b.brokenPayload(ctx, chatID, data, "We messed up. Can't start downloading :(")
	}
	ordinal, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil {
		return b.brokenPayload(ctx, chatID, data, "We messed up. Can't start downloading :(")
	}

	mag, err := b.store.GetMagnet(ctx, user, magnetID)
	if err != nil {
		return fmt.Errorf("failed to load magnet %s: %w", magnetID, err)
	}
	link, err := magnet.Parse(mag.URL)
	if err != nil {
		return fmt.Errorf("stored magnet %s does not parse: %w", magnetID, err)
	}

	dir, err := b.store.GetDirectory(ctx, user, int32(ordinal))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return b.chat.Send(ctx, chatID, "No Directories found! Please add one first!", addDirectoryKeyboard())
		}
		return fmt.Errorf("failed to load directory %d: %w", ordinal, err)
	}

	server, err := b.soleServer(ctx, user, chatID)
	if err != nil || server == nil {
		return err
	}

	result, err := b.daemonFor(server).TorrentAdd(ctx, link.ShortLink(), dir.Path)
	if err != nil {
		b.log.Warn("torrent-add failed", "code", boterr.BOT_TRANSPORT, "error", err)
		return b.chat.Send(ctx, chatID, "Unable to add task", nil)
	}
	if result.Duplicate {
		// The daemon already had this torrent; no task row is written.
		return b.chat.Send(ctx, chatID, "Such task already exists", nil)
	}

	task, err := b.store.AddTask(ctx, user, server.ID, magnetID)
	if err != nil {
		return fmt.Errorf("failed to record task: %w", err)
	}
	b.publishTaskCreated(ctx, task)

	text := fmt.Sprintf("Downloading %s\nto %s", link.DN, dir.Alias)
	return b.renderTask(ctx, chat.Send, chat.Target{ChatID: chatID}, task.ID, text, result.Torrent.PercentDone)
}

// renderTask draws a task message with its follow-up keyboard, either as a
// fresh message or over the one the user pressed. All task keyboards go
// through here so the action set stays consistent between the two paths.
func (b *Bot) renderTask(ctx context.Context, action chat.Action, target chat.Target, taskID uuid.UUID, text string, percentDone float64) error {
	return chat.Render(ctx, b.chat, action, target, text, statusKeyboard(taskID, percentDone))
}

// UpdateTaskStatus handles a t_status:<taskRef> press: it asks the daemon
// for the torrent by content hash and redraws the triggering message with a
// fresh progress bar. Stored task status is not touched; progress always
// comes from the live query.
func (b *Bot) UpdateTaskStatus(ctx context.Context, user *model.User, cb *chat.Callback, data string) error {
	parts := strings.Split(data, ":")
	if len(parts) != 2 {
		return b.brokenPayload(ctx, cb.ChatID, data, "We messed up. Can't check the status :(")
	}
	taskID, err := uuid.Parse(parts[1])
	if err != nil {
		return b.brokenPayload(ctx, cb.ChatID, data, "We messed up. Can't check the status :(")
	}

	task, link, err := b.resolveTask(ctx, user, taskID)
	if err != nil {
		return err
	}
	server, err := b.soleServer(ctx, user, cb.ChatID)
	if err != nil || server == nil {
		return err
	}

	target := chat.Target{ChatID: cb.ChatID, MessageID: cb.MessageID}
	hash := link.Hash()
	torrent, err := b.daemonFor(server).TorrentGetByHash(ctx, hash)
	if err != nil {
		b.log.Warn("torrent-get failed", "code", boterr.BOT_TRANSPORT, "hash", hash, "error", err)
		return chat.Render(ctx, b.chat, chat.Edit, target,
			hash+"\nTorrent was not found on the server!", nil)
	}
	if torrent == nil {
		return chat.Render(ctx, b.chat, chat.Edit, target,
			fmt.Sprintf("Torrent\n%s\nwas removed", link.DN), hideKeyboard())
	}

	name := torrent.Name
	if name == "" {
		name = hash
	}
	text := fmt.Sprintf("Downloading %s\n%s", name, b.torrentStatus(torrent.PercentDone))
	return b.renderTask(ctx, chat.Edit, target, task.ID, text, torrent.PercentDone)
}

// RemoveTask handles a t_remove:<taskRef> press: the torrent and its data
// are removed from the daemon and the message is replaced by a confirmation.
func (b *Bot) RemoveTask(ctx context.Context, user *model.User, cb *chat.Callback, data string) error {
	parts := strings.Split(data, ":")
	if len(parts) != 2 {
		return b.brokenPayload(ctx, cb.ChatID, data, "We messed up. Can't remove the task :(")
	}
	taskID, err := uuid.Parse(parts[1])
	if err != nil {
		return b.brokenPayload(ctx, cb.ChatID, data, "We messed up. Can't remove the task :(")
	}

	_, link, err := b.resolveTask(ctx, user, taskID)
	if err != nil {
		return err
	}
	server, err := b.soleServer(ctx, user, cb.ChatID)
	if err != nil || server == nil {
		return err
	}

	hash := link.Hash()
	if err := b.daemonFor(server).TorrentRemoveByHash(ctx, hash); err != nil {
		return boterr.Wrap(boterr.BOT_LOGIC, fmt.Sprintf("failed to remove the torrent: %s", link.DN), err)
	}
	b.publishTaskRemoved(ctx, user.ID, hash)

	return chat.Render(ctx, b.chat, chat.Edit, chat.Target{ChatID: cb.ChatID, MessageID: cb.MessageID},
		fmt.Sprintf("Torrent\n%s\nwas removed", link.DN), hideKeyboard())
}

// resolveTask loads a task by reference and re-parses its magnet. The task
// lookup is global by id; the magnet lookup is owner-scoped, so a reference
// leaked across users resolves to nothing.
func (b *Bot) resolveTask(ctx context.Context, user *model.User, taskID uuid.UUID) (*model.DownloadTask, *magnet.Link, error) {
	task, err := b.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, boterr.New(boterr.BOT_LOGIC, "no task found")
		}
		return nil, nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	mag, err := b.store.GetMagnet(ctx, user, task.MagnetID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load magnet %s: %w", task.MagnetID, err)
	}
	link, err := magnet.Parse(mag.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("stored magnet %s does not parse: %w", task.MagnetID, err)
	}
	return task, link, nil
}

// torrentStatus renders the ten-segment progress bar with a timestamp, so
// repeated presses on a stalled torrent still visibly change the message.
func (b *Bot) torrentStatus(percentDone float64) string {
	percent := int(percentDone * 100)
	filled := percent / 10
	bar := strings.Repeat("❇️", filled) + strings.Repeat("◻️", 10-filled)
	return fmt.Sprintf("%s[%d%%]\nUpdated at: %s", bar, percent,
		b.now().UTC().Format("02.01.2006 15:04:05"))
}

// statusKeyboard attaches the follow-up actions for a task message: refresh
// while downloading, remove+hide once the torrent is complete.
func statusKeyboard(taskID uuid.UUID, percentDone float64) chat.Keyboard {
	if percentDone == 1.0 {
		return chat.Keyboard{
			chat.Row(chat.Button{Label: cmdTaskRemove, Data: payloadTaskRemove + taskID.String()}),
			chat.Row(chat.Button{Label: cmdTaskHide, Data: cmdTaskHide}),
		}
	}
	return chat.Keyboard{
		chat.Row(chat.Button{Label: cmdTaskStatus, Data: payloadTaskStatus + taskID.String()}),
	}
}

func hideKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Label: cmdTaskHide, Data: cmdTaskHide}),
	}
}
