// internal/model/model.go
// Package model defines the data structures used throughout the bot.
// These structures represent the core domain objects for users, servers,
// download directories, registered magnets and download tasks.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered chat user.
// The id is the chat platform's user identifier; the salt is generated once
// at registration and seeds the credential vault for this user's servers.
// This corresponds to the users table in storage.
type User struct {
	ID        int64     `json:"id" db:"id"`                // Chat platform user identifier
	Chat      int64     `json:"chat" db:"chat"`            // Chat to report into
	FirstName string    `json:"firstName" db:"first_name"` // Display name
	LastName  string    `json:"lastName" db:"last_name"`   // Optional
	Username  string    `json:"username" db:"username"`    // Optional
	Salt      string    `json:"-" db:"salt"`               // Vault nonce, fixed per user
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NewUser carries the fields for a user registration.
type NewUser struct {
	ID        int64
	Chat      int64
	FirstName string
	LastName  string
	Username  string
	Salt      string
}

// Authentication is a daemon credential pair. The password is stored
// encrypted and only decrypted for the duration of a single daemon call.
type Authentication struct {
	Username string
	Password string
}

// Server represents a registered torrent daemon.
// Username/Password are empty when the daemon needs no auth; Password holds
// vault ciphertext at rest.
// This corresponds to the servers table in storage.
type Server struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	URL       string    `json:"url" db:"url"` // Base URL, no /transmission suffix
	Username  string    `json:"username" db:"username"`
	Password  string    `json:"-" db:"password"` // Encrypted, base64
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Auth returns the stored credential, or false when the server is open.
func (s *Server) Auth() (Authentication, bool) {
	if s.Username == "" {
		return Authentication{}, false
	}
	return Authentication{Username: s.Username, Password: s.Password}, true
}

// NewServer carries the fields for a server registration. Password is
// plaintext here; the storage layer encrypts it before insert.
type NewServer struct {
	UserID int64
	URL    string
	Auth   *Authentication
}

// DownloadDirectory is a per-user download target on the daemon host.
// The ordinal is a small per-user sequence number; it identifies the
// directory inside byte-limited button payloads where a full identifier
// would not fit.
// This corresponds to the dirs table in storage.
type DownloadDirectory struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Alias     string    `json:"alias" db:"alias"`
	Path      string    `json:"path" db:"path"`
	Ordinal   int32     `json:"ordinal" db:"ordinal"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Magnet is a registered magnet link. URL holds the full serialized form,
// display name included; the id is the opaque reference carried by buttons.
// Rows are written once per intake and never mutated.
// This corresponds to the magnets table in storage.
type Magnet struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	URL       string    `json:"url" db:"url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// TaskStatus is the stored lifecycle marker of a download task.
//
// Displayed progress always comes from a live daemon query; the stored
// status is written once at creation and is not advanced by polling.
type TaskStatus string

const (
	TaskCreated  TaskStatus = "created"
	TaskStarted  TaskStatus = "started"
	TaskFinished TaskStatus = "finished"
	TaskError    TaskStatus = "error"
)

// ParseTaskStatus maps a stored string back to a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskCreated, TaskStarted, TaskFinished, TaskError:
		return TaskStatus(s), true
	}
	return "", false
}

// DownloadTask ties a registered magnet to the server it was submitted to.
// A row is created only after the daemon has accepted the torrent, never
// before and never for a duplicate.
// This corresponds to the tasks table in storage.
type DownloadTask struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      int64      `json:"userId" db:"user_id"`
	ServerID    uuid.UUID  `json:"serverId" db:"server_id"`
	MagnetID    uuid.UUID  `json:"magnetId" db:"magnet_id"`
	Status      TaskStatus `json:"status" db:"status"`
	Description string     `json:"description" db:"description"` // Error detail, usually empty
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}
