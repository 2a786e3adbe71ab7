package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/red-avtovo/r-trans-bot/internal/chat"
	"github.com/red-avtovo/r-trans-bot/internal/model"
	"github.com/red-avtovo/r-trans-bot/internal/transmission"
)

func registerServerKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Label: cmdRegisterServer, Data: cmdRegisterServer}),
	}
}

func serverSettingsKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Label: cmdRegisterServer, Data: cmdRegisterServer}),
		chat.Row(chat.Button{Label: cmdResetServers, Data: cmdResetServers}),
		chat.Row(chat.Button{Label: cmdBackToSettings, Data: cmdBackToSettings}),
	}
}

// soleServer returns the user's single registered server. When none exists
// the user is pointed at registration and (nil, nil) is returned; callers
// treat that as a handled stop.
func (b *Bot) soleServer(ctx context.Context, user *model.User, chatID int64) (*model.Server, error) {
	servers, err := b.store.ListServers(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	if len(servers) == 0 {
		return nil, b.chat.Send(ctx, chatID, "No Servers found! Please register one first!", registerServerKeyboard())
	}
	return &servers[0], nil
}

// showStats reports the task count for the user's server together with a
// live reachability probe.
func (b *Bot) showStats(ctx context.Context, user *model.User, chatID int64) error {
	servers, err := b.store.ListServers(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to list servers: %w", err)
	}

	lines := []string{"Downloads for server:"}
	if len(servers) == 0 {
		lines = append(lines, "Nothing yet :(")
	} else {
		server := &servers[0]
		count, err := b.store.CountTasksByServer(ctx, server.ID)
		if err != nil {
			return fmt.Errorf("failed to count tasks: %w", err)
		}
		lines = append(lines, fmt.Sprintf("<b>%s</b>: <i>%d</i>", server.URL, count))

		status := "👍"
		if err := b.daemonFor(server).SessionGet(ctx); err != nil {
			status = "👎"
		}
		lines = append(lines, "Server status: "+status)
	}

	return b.chat.Send(ctx, chatID, strings.Join(lines, "\n"), serverSettingsKeyboard())
}

// registerServerPrepare opens the registration dialogue. At most one server
// per user is allowed, checked here before prompting; the insert itself does
// not re-check, so two racing registrations can both pass. Accepted for a
// single-operator chat flow.
func (b *Bot) registerServerPrepare(ctx context.Context, user *model.User, chatID int64) (bool, error) {
	servers, err := b.store.ListServers(ctx, user)
	if err != nil {
		return false, fmt.Errorf("failed to list servers: %w", err)
	}
	if len(servers) != 0 {
		return false, b.chat.Send(ctx, chatID, "There is already a server registered!", nil)
	}
	prompt := "Enter server details in the format:\n" +
		"<i>A link to you webui: E.g. http://localhost:9091/transmission/web</i>\n" +
		"<i>Optional: user</i>\n" +
		"<i>Optional: password</i>"
	return true, b.chat.Send(ctx, chatID, prompt, nil)
}

// registerServerPerform is step two of the registration dialogue: one line
// for an open daemon, three lines for one behind basic auth. The daemon is
// probed with session-get before anything is stored.
func (b *Bot) registerServerPerform(ctx context.Context, user *model.User, msg *chat.Message) (ConvState, error) {
	lines := strings.Split(strings.TrimSpace(msg.Text), "\n")

	var auth *model.Authentication
	switch len(lines) {
	case 1:
		// URL only
	case 3:
		auth = &model.Authentication{Username: lines[1], Password: lines[2]}
	default:
		if err := b.chat.Send(ctx, msg.ChatID, fmt.Sprintf("Incorrect format. Found %d lines", len(lines)), nil); err != nil {
			return AwaitingServerInput, err
		}
		_, err := b.registerServerPrepare(ctx, user, msg.ChatID)
		return AwaitingServerInput, err
	}

	url, ok := transmission.FromWebURL(lines[0])
	if !ok {
		if err := b.chat.Send(ctx, msg.ChatID, "That doesn't look like a server link", nil); err != nil {
			return AwaitingServerInput, err
		}
		return AwaitingServerInput, nil
	}

	var basic *transmission.BasicAuth
	if auth != nil {
		basic = &transmission.BasicAuth{User: auth.Username, Password: auth.Password}
	}
	if err := b.daemon(url, basic).SessionGet(ctx); err != nil {
		b.log.Warn("server probe failed", "url", url.Base(), "error", err)
		if err := b.chat.Send(ctx, msg.ChatID, "Unable to connect to server! Check details", nil); err != nil {
			return AwaitingServerInput, err
		}
		_, err := b.registerServerPrepare(ctx, user, msg.ChatID)
		return AwaitingServerInput, err
	}

	if _, err := b.store.AddServer(ctx, user, model.NewServer{
		UserID: user.ID,
		URL:    url.Base(),
		Auth:   auth,
	}); err != nil {
		return Idle, fmt.Errorf("failed to save server: %w", err)
	}
	return Idle, b.chat.Send(ctx, msg.ChatID, "Done!", nil)
}

func (b *Bot) resetServers(ctx context.Context, user *model.User, chatID int64) error {
	if err := b.store.DeleteServers(ctx, user); err != nil {
		return fmt.Errorf("failed to delete servers: %w", err)
	}
	return b.chat.Send(ctx, chatID, "Done!", nil)
}
