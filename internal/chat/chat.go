// internal/chat/chat.go
// Package chat defines the contract with the chat platform.
// The transport itself (Telegram today) lives behind the Client interface;
// everything in the bot renders through these types.
package chat

import "context"

// MaxPayloadBytes is the platform's ceiling for a button payload. Buttons
// carry opaque references instead of raw magnet text because of it.
const MaxPayloadBytes = 64

// Button is one inline keyboard button: a visible label and the opaque
// payload delivered back when it is pressed.
type Button struct {
	Label string
	Data  string
}

// Keyboard is rows of buttons attached to a message.
type Keyboard [][]Button

// Row builds one keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Update is one inbound chat event: exactly one of Message or Callback is
// set.
type Update struct {
	Message  *Message
	Callback *Callback
}

// Message is an inbound text message.
type Message struct {
	ChatID    int64
	MessageID int
	From      UserInfo
	Text      string
}

// Callback is a button press on a previously sent keyboard.
type Callback struct {
	ID        string
	From      UserInfo
	ChatID    int64
	MessageID int
	Data      string
}

// UserInfo identifies the sender as reported by the platform.
type UserInfo struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// Client is the outbound surface the bot calls back on.
type Client interface {
	// Send posts a new message; kb may be nil.
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) error
	// Edit replaces the text (and keyboard) of an existing message.
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	// Delete removes a message. Platforms refuse deletion of old messages;
	// callers fall back to Edit with a placeholder.
	Delete(ctx context.Context, chatID int64, messageID int) error
	// AckCallback answers a callback query so the client stops its spinner.
	AckCallback(ctx context.Context, callbackID string) error
}

// Action selects how a render lands: as a fresh message or as an edit of the
// message the user interacted with.
type Action int

const (
	Send Action = iota
	Edit
)

// Target locates where a render goes.
type Target struct {
	ChatID    int64
	MessageID int // used only for Edit
}

// Render delivers text+keyboard either as a new message or in place,
// keeping status/remove/hide rendering logic in one call site.
func Render(ctx context.Context, c Client, action Action, target Target, text string, kb Keyboard) error {
	if action == Edit {
		return c.Edit(ctx, target.ChatID, target.MessageID, text, kb)
	}
	return c.Send(ctx, target.ChatID, text, kb)
}
