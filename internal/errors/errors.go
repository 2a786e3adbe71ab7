// Package errors provides standardized error classification for the bot.
package errors

import "fmt"

// Code classifies a failure for logging and for picking the user-facing
// message. Nothing here is retried; each code is surfaced exactly once.
type Code string

const (
	// BOT_PARSE: the magnet text could not be parsed.
	BOT_PARSE Code = "BOT_PARSE"
	// BOT_PRECONDITION: the user has no server or no directory registered.
	BOT_PRECONDITION Code = "BOT_PRECONDITION"
	// BOT_TRANSPORT: the daemon or the chat platform could not be reached.
	BOT_TRANSPORT Code = "BOT_TRANSPORT"
	// BOT_PROTOCOL: a button payload was malformed.
	BOT_PROTOCOL Code = "BOT_PROTOCOL"
	// BOT_PERSISTENCE: the store was unavailable or a query failed.
	BOT_PERSISTENCE Code = "BOT_PERSISTENCE"
	// BOT_LOGIC: an internal invariant did not hold.
	BOT_LOGIC Code = "BOT_LOGIC"
)

// Error is a classified bot error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New creates a new Error with the specified code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a new Error wrapping an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}
