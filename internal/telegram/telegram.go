// internal/telegram/telegram.go
// Package telegram adapts the Telegram Bot API to the chat contract.
// The adapter stays thin: it converts updates and keyboards and nothing else.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/red-avtovo/r-trans-bot/internal/chat"
)

// Client wraps a Telegram bot API connection and implements chat.Client.
type Client struct {
	api *tgbotapi.BotAPI
}

// New authorizes against the Telegram Bot API with the given token.
func New(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}
	return &Client{api: api}, nil
}

// Username returns the bot account name, for startup logging.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Run long-polls for updates and hands each one to handle on its own
// goroutine, one lightweight task per inbound event. It returns when ctx is
// cancelled.
func (c *Client) Run(ctx context.Context, handle func(context.Context, chat.Update)) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := c.api.GetUpdatesChan(cfg)

	go func() {
		<-ctx.Done()
		c.api.StopReceivingUpdates()
	}()

	for u := range updates {
		update, ok := convert(u)
		if !ok {
			slog.Debug("skipping unsupported update", "update_id", u.UpdateID)
			continue
		}
		go handle(ctx, update)
	}
}

// convert maps a Telegram update onto the chat contract. Updates that are
// neither text messages nor button presses are skipped.
func convert(u tgbotapi.Update) (chat.Update, bool) {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return chat.Update{Message: &chat.Message{
			ChatID:    u.Message.Chat.ID,
			MessageID: u.Message.MessageID,
			From:      userInfo(u.Message.From),
			Text:      u.Message.Text,
		}}, true
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return chat.Update{Callback: &chat.Callback{
			ID:        u.CallbackQuery.ID,
			From:      userInfo(u.CallbackQuery.From),
			ChatID:    u.CallbackQuery.Message.Chat.ID,
			MessageID: u.CallbackQuery.Message.MessageID,
			Data:      u.CallbackQuery.Data,
		}}, true
	}
	return chat.Update{}, false
}

func userInfo(u *tgbotapi.User) chat.UserInfo {
	return chat.UserInfo{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.UserName,
	}
}

func (c *Client) Send(ctx context.Context, chatID int64, text string, kb chat.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		msg.ReplyMarkup = markup(kb)
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string, kb chat.Keyboard) error {
	var cfg tgbotapi.EditMessageTextConfig
	if kb != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup(kb))
	} else {
		cfg = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	if _, err := c.api.Send(cfg); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (c *Client) AckCallback(ctx context.Context, callbackID string) error {
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// markup converts the contract keyboard to the Telegram inline markup.
func markup(kb chat.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
