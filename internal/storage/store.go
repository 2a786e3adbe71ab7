// internal/storage/store.go
// Package storage persists users, servers, directories, magnets and tasks.
// Magnet and task rows double as the reference store: buttons carry their
// generated identifiers instead of the payload itself.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/red-avtovo/r-trans-bot/internal/model"
	"github.com/red-avtovo/r-trans-bot/internal/vault"
)

// Standard errors returned by the storage layer
var (
	ErrNotFound = errors.New("not found") // Returned when a record is not found
	ErrConflict = errors.New("conflict")  // Returned when a record already exists
)

// Store defines the persistence operations the bot needs.
// It is implemented by both the in-memory and the PostgreSQL backends.
// All lookups are owner-scoped except GetTask, which looks tasks up globally
// by id; callers cross-check the task's magnet and server against the owner
// before acting on it.
type Store interface {
	// Users
	SaveUser(ctx context.Context, nu model.NewUser) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)

	// Download directories. Ordinals are assigned per user as max+1.
	AddDirectory(ctx context.Context, user *model.User, alias, path string) (*model.DownloadDirectory, error)
	GetDirectory(ctx context.Context, user *model.User, ordinal int32) (*model.DownloadDirectory, error)
	ListDirectories(ctx context.Context, user *model.User) ([]model.DownloadDirectory, error)
	DeleteDirectory(ctx context.Context, user *model.User, ordinal int32) error
	DeleteDirectories(ctx context.Context, user *model.User) error

	// Servers. Credentials are encrypted before insert and decrypted on
	// every read; plaintext never sits in a row or a cache.
	AddServer(ctx context.Context, user *model.User, ns model.NewServer) (*model.Server, error)
	ListServers(ctx context.Context, user *model.User) ([]model.Server, error)
	DeleteServers(ctx context.Context, user *model.User) error
	CountTasksByServer(ctx context.Context, serverID uuid.UUID) (int64, error)

	// Magnets. Registered once per intake, never deduplicated or mutated.
	RegisterMagnet(ctx context.Context, user *model.User, fullLink string) (uuid.UUID, error)
	GetMagnet(ctx context.Context, user *model.User, id uuid.UUID) (*model.Magnet, error)

	// Tasks. A row is created only after the daemon accepted the torrent.
	AddTask(ctx context.Context, user *model.User, serverID, magnetID uuid.UUID) (*model.DownloadTask, error)
	GetTask(ctx context.Context, id uuid.UUID) (*model.DownloadTask, error)
}

// crypt builds the per-user vault from the process secret and the user salt.
// Both backends use it so credential handling stays identical.
func crypt(secret string, user *model.User) (*vault.Vault, error) {
	return vault.New(secret, user.Salt)
}
