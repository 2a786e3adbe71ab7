package bot

// ConvState is the per-user conversation state. It is an explicit tagged
// value: every dialogue handler returns the next state and the router stores
// it, so a reader can follow every transition from the dispatch table.
type ConvState int

const (
	// Idle: no dialogue in progress; free text is handled as a magnet or
	// rejected.
	Idle ConvState = iota
	// AwaitingDirectoryInput: the next message is an "alias\npath" pair.
	AwaitingDirectoryInput
	// AwaitingServerInput: the next message is a server registration, one
	// line (URL) or three (URL, user, password).
	AwaitingServerInput
)

// state returns the conversation state for a user, Idle when none was set.
func (b *Bot) state(userID int64) ConvState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[userID]
}

// setState stores the conversation state for a user. Idle clears the entry
// so the map only holds users mid-dialogue.
func (b *Bot) setState(userID int64, s ConvState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == Idle {
		delete(b.states, userID)
		return
	}
	b.states[userID] = s
}
