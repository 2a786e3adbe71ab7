package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/red-avtovo/r-trans-bot/internal/chat"
	"github.com/red-avtovo/r-trans-bot/internal/model"
	"github.com/red-avtovo/r-trans-bot/internal/storage"
	"github.com/red-avtovo/r-trans-bot/internal/vault"
)

func settingsKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Label: cmdListDirectories, Data: cmdListDirectories}),
		chat.Row(chat.Button{Label: cmdServerStats, Data: cmdServerStats}),
	}
}

// startCommand registers the sender on first contact. The salt minted here
// is fixed for the lifetime of the account and seeds the credential vault.
func (b *Bot) startCommand(ctx context.Context, msg *chat.Message) error {
	existing, err := b.store.GetUser(ctx, msg.From.ID)
	if err == nil {
		return b.chat.Send(ctx, msg.ChatID, fmt.Sprintf("Welcome back, %s", existing.FirstName), nil)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to look up user %d: %w", msg.From.ID, err)
	}

	user, err := b.store.SaveUser(ctx, model.NewUser{
		ID:        msg.From.ID,
		Chat:      msg.ChatID,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Username:  msg.From.Username,
		Salt:      vault.RandomSalt(),
	})
	if err != nil {
		return fmt.Errorf("failed to save user %d: %w", msg.From.ID, err)
	}
	return b.chat.Send(ctx, msg.ChatID, fmt.Sprintf("Welcome, %s", user.FirstName), nil)
}

func (b *Bot) settingsMenu(ctx context.Context, chatID int64) error {
	return b.chat.Send(ctx, chatID, cmdSettingsMenu, settingsKeyboard())
}

// backToSettings redraws the triggering message as the settings menu.
func (b *Bot) backToSettings(ctx context.Context, chatID int64, messageID int) error {
	return b.chat.Edit(ctx, chatID, messageID, cmdSettingsMenu, settingsKeyboard())
}
