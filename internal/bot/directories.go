package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/red-avtovo/r-trans-bot/internal/chat"
	"github.com/red-avtovo/r-trans-bot/internal/model"
)

func addDirectoryKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Label: cmdAddDirectory, Data: cmdAddDirectory}),
	}
}

func directorySettingsKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Label: cmdAddDirectory, Data: cmdAddDirectory}),
		chat.Row(chat.Button{Label: cmdResetDirectories, Data: cmdResetDirectories}),
		chat.Row(chat.Button{Label: cmdBackToSettings, Data: cmdBackToSettings}),
	}
}

// listDirectories renders the user's directories as "alias: path" lines,
// newest ordinal last.
func (b *Bot) listDirectories(ctx context.Context, user *model.User, chatID int64) error {
	dirs, err := b.store.ListDirectories(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to list directories: %w", err)
	}
	if len(dirs) == 0 {
		return b.chat.Send(ctx, chatID, "There are no registered directories yet", directorySettingsKeyboard())
	}

	lines := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		lines = append(lines, fmt.Sprintf("<b>%s</b>: %s", dir.Alias, dir.Path))
	}
	return b.chat.Send(ctx, chatID, strings.Join(lines, "\n"), directorySettingsKeyboard())
}

func (b *Bot) addDirectoryPrepare(ctx context.Context, chatID int64) error {
	prompt := "<b>Adding directory</b>\nDirectory format is\n\n" +
		"first line: <i>Directory alias</i>\n" +
		"second line: <i>Directory path</i>"
	return b.chat.Send(ctx, chatID, prompt, nil)
}

// addDirectoryPerform is step two of the add dialogue: an "alias\npath"
// message. Anything else re-prompts and keeps the dialogue open.
func (b *Bot) addDirectoryPerform(ctx context.Context, user *model.User, msg *chat.Message) (ConvState, error) {
	lines := strings.Split(strings.TrimSpace(msg.Text), "\n")
	if len(lines) != 2 {
		if err := b.chat.Send(ctx, msg.ChatID, fmt.Sprintf("Incorrect format. Found %d lines", len(lines)), nil); err != nil {
			return AwaitingDirectoryInput, err
		}
		return AwaitingDirectoryInput, b.addDirectoryPrepare(ctx, msg.ChatID)
	}

	if _, err := b.store.AddDirectory(ctx, user, lines[0], lines[1]); err != nil {
		return Idle, fmt.Errorf("failed to save directory: %w", err)
	}
	return Idle, b.chat.Send(ctx, msg.ChatID, "Done!", directorySettingsKeyboard())
}

func (b *Bot) resetDirectories(ctx context.Context, user *model.User, chatID int64) error {
	if err := b.store.DeleteDirectories(ctx, user); err != nil {
		return fmt.Errorf("failed to delete directories: %w", err)
	}
	return b.chat.Send(ctx, chatID, "Done!", nil)
}
