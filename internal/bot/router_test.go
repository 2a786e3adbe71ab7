package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/red-avtovo/r-trans-bot/internal/chat"
)

func message(env *testEnv, text string) chat.Update {
	return chat.Update{Message: &chat.Message{
		ChatID:    100,
		MessageID: 5,
		From:      chat.UserInfo{ID: env.user.ID, FirstName: env.user.FirstName},
		Text:      text,
	}}
}

func callback(env *testEnv, data string) chat.Update {
	return chat.Update{Callback: &chat.Callback{
		ID:        "cb1",
		From:      chat.UserInfo{ID: env.user.ID},
		ChatID:    100,
		MessageID: 5,
		Data:      data,
	}}
}

func TestRouteStartRegistersUser(t *testing.T) {
	env := newTestEnv(t)

	// Already registered in newTestEnv: expect the welcome-back path.
	env.bot.Route(context.Background(), message(env, "/start"))
	if msg := env.chat.lastSent(t); msg.text != "Welcome back, Alice" {
		t.Errorf("sent text = %q, want welcome back", msg.text)
	}

	// A fresh user gets registered with a salt.
	fresh := chat.Update{Message: &chat.Message{
		ChatID: 200,
		From:   chat.UserInfo{ID: 77, FirstName: "Bob"},
		Text:   "/start",
	}}
	env.bot.Route(context.Background(), fresh)
	if msg := env.chat.lastSent(t); msg.text != "Welcome, Bob" {
		t.Errorf("sent text = %q, want welcome", msg.text)
	}
	user, err := env.store.GetUser(context.Background(), 77)
	if err != nil {
		t.Fatalf("GetUser(77) error = %v", err)
	}
	if len(user.Salt) != 12 {
		t.Errorf("salt length = %d, want 12", len(user.Salt))
	}
}

func TestRouteUnknownText(t *testing.T) {
	env := newTestEnv(t)

	env.bot.Route(context.Background(), message(env, "hello there"))

	msg := env.chat.lastSent(t)
	if msg.text != "I don't know what you mean" {
		t.Errorf("sent text = %q, want fallback", msg.text)
	}
	data := keyboardData(msg.kb)
	if len(data) != 2 || data[0] != cmdListDirectories || data[1] != cmdServerStats {
		t.Errorf("keyboard payloads = %v, want settings entries", data)
	}
}

func TestRouteCallbackAcknowledgesAndCleansUp(t *testing.T) {
	env := newTestEnv(t)

	env.bot.Route(context.Background(), callback(env, cmdCancel))

	if len(env.chat.acked) != 1 || env.chat.acked[0] != "cb1" {
		t.Errorf("acked = %v, want the callback id", env.chat.acked)
	}
	if len(env.chat.deleted) != 1 || env.chat.deleted[0] != 5 {
		t.Errorf("deleted = %v, want the triggering message", env.chat.deleted)
	}
}

func TestRouteCallbackHideFallsBackToEdit(t *testing.T) {
	env := newTestEnv(t)
	env.chat.failDelete = true

	env.bot.Route(context.Background(), callback(env, cmdTaskHide))

	msg := env.chat.lastEdited(t)
	if msg.text != "-- Hidden --" {
		t.Errorf("edited text = %q, want placeholder", msg.text)
	}
	if msg.messageID != 5 {
		t.Errorf("edited message id = %d, want 5", msg.messageID)
	}
}

func TestRouteStatusCallbackKeepsMessage(t *testing.T) {
	env := newTestEnv(t)
	task, _ := taskEnv(t, env)
	env.daemon.torrent = nil

	env.bot.Route(context.Background(), callback(env, "t_status:"+task.ID.String()))

	if len(env.chat.deleted) != 0 {
		t.Errorf("deleted = %v, want status message kept", env.chat.deleted)
	}
}

func TestRouteDirectoryDialogue(t *testing.T) {
	env := newTestEnv(t)

	env.bot.Route(context.Background(), callback(env, cmdAddDirectory))
	if got := env.bot.state(env.user.ID); got != AwaitingDirectoryInput {
		t.Fatalf("state after prompt = %v, want AwaitingDirectoryInput", got)
	}

	env.bot.Route(context.Background(), message(env, "Movies\n/data/movies"))
	if got := env.bot.state(env.user.ID); got != Idle {
		t.Errorf("state after perform = %v, want Idle", got)
	}

	dirs, err := env.store.ListDirectories(context.Background(), env.user)
	if err != nil {
		t.Fatalf("ListDirectories() error = %v", err)
	}
	if len(dirs) != 1 || dirs[0].Alias != "Movies" || dirs[0].Path != "/data/movies" {
		t.Errorf("directories = %+v, want the added one", dirs)
	}
}

func TestRouteDirectoryDialogueBadInputStaysOpen(t *testing.T) {
	env := newTestEnv(t)

	env.bot.Route(context.Background(), callback(env, cmdAddDirectory))
	env.bot.Route(context.Background(), message(env, "just one line"))

	if got := env.bot.state(env.user.ID); got != AwaitingDirectoryInput {
		t.Errorf("state = %v, want dialogue still open", got)
	}
	found := false
	for _, m := range env.chat.sent {
		if strings.Contains(m.text, "Incorrect format. Found 1 lines") {
			found = true
		}
	}
	if !found {
		t.Errorf("no incorrect-format message in %v", env.chat.sent)
	}
}

func TestRouteServerDialogue(t *testing.T) {
	env := newTestEnv(t)

	env.bot.Route(context.Background(), callback(env, cmdRegisterServer))
	if got := env.bot.state(env.user.ID); got != AwaitingServerInput {
		t.Fatalf("state after prompt = %v, want AwaitingServerInput", got)
	}

	env.bot.Route(context.Background(), message(env, "http://localhost:9091/transmission/web/\nadmin\nhunter2"))
	if got := env.bot.state(env.user.ID); got != Idle {
		t.Errorf("state after perform = %v, want Idle", got)
	}

	servers, err := env.store.ListServers(context.Background(), env.user)
	if err != nil {
		t.Fatalf("ListServers() error = %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("servers = %d, want 1", len(servers))
	}
	if servers[0].URL != "http://localhost:9091" {
		t.Errorf("server url = %q, want normalized base", servers[0].URL)
	}
	auth, ok := servers[0].Auth()
	if !ok || auth.Username != "admin" || auth.Password != "hunter2" {
		t.Errorf("auth = %+v (%v), want stored credential back in plaintext", auth, ok)
	}
}

func TestRouteSecondServerRefused(t *testing.T) {
	env := newTestEnv(t)
	env.addServer(t)

	env.bot.Route(context.Background(), callback(env, cmdRegisterServer))

	if got := env.bot.state(env.user.ID); got != Idle {
		t.Errorf("state = %v, want no dialogue for second server", got)
	}
	if msg := env.chat.lastSent(t); msg.text != "There is already a server registered!" {
		t.Errorf("sent text = %q, want refusal", msg.text)
	}
}

func TestRouteServerDialogueUnreachableDaemon(t *testing.T) {
	env := newTestEnv(t)
	env.daemon.sessionErr = context.DeadlineExceeded

	env.bot.Route(context.Background(), callback(env, cmdRegisterServer))
	env.bot.Route(context.Background(), message(env, "http://localhost:9091/transmission/web/"))

	if got := env.bot.state(env.user.ID); got != AwaitingServerInput {
		t.Errorf("state = %v, want dialogue still open after failed probe", got)
	}
	servers, _ := env.store.ListServers(context.Background(), env.user)
	if len(servers) != 0 {
		t.Errorf("servers = %d, want none stored after failed probe", len(servers))
	}
}

func TestRouteServerStats(t *testing.T) {
	env := newTestEnv(t)
	env.addServer(t)

	env.bot.Route(context.Background(), callback(env, cmdServerStats))

	msg := env.chat.lastSent(t)
	if !strings.HasPrefix(msg.text, "Downloads for server:") {
		t.Errorf("sent text = %q, want stats header", msg.text)
	}
	if !strings.Contains(msg.text, "Server status: 👍") {
		t.Errorf("sent text = %q, want healthy probe", msg.text)
	}
}
