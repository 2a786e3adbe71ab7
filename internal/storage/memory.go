// internal/storage/memory.go
// In-memory implementation of the Store interface, for development and tests.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/red-avtovo/r-trans-bot/internal/model"
)

// memory implements the Store interface using in-memory maps.
// Credential handling matches the PostgreSQL backend: passwords are kept
// encrypted in the maps and decrypted on every read.
type memory struct {
	mu      sync.RWMutex
	secret  string
	users   map[int64]*model.User
	servers map[uuid.UUID]*model.Server
	dirs    map[uuid.UUID]*model.DownloadDirectory
	magnets map[uuid.UUID]*model.Magnet
	tasks   map[uuid.UUID]*model.DownloadTask
}

// NewMemory creates a new in-memory storage implementation.
func NewMemory(secret string) Store {
	return &memory{
		secret:  secret,
		users:   make(map[int64]*model.User),
		servers: make(map[uuid.UUID]*model.Server),
		dirs:    make(map[uuid.UUID]*model.DownloadDirectory),
		magnets: make(map[uuid.UUID]*model.Magnet),
		tasks:   make(map[uuid.UUID]*model.DownloadTask),
	}
}

func (m *memory) SaveUser(ctx context.Context, nu model.NewUser) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[nu.ID]; exists {
		return nil, ErrConflict
	}
	u := &model.User{
		ID:        nu.ID,
		Chat:      nu.Chat,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Username:  nu.Username,
		Salt:      nu.Salt,
		CreatedAt: time.Now().UTC(),
	}
	m.users[nu.ID] = u
	copy := *u
	return &copy, nil
}

func (m *memory) GetUser(ctx context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, exists := m.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (m *memory) AddDirectory(ctx context.Context, user *model.User, alias, path string) (*model.DownloadDirectory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var last int32
	for _, d := range m.dirs {
		if d.UserID == user.ID && d.Ordinal > last {
			last = d.Ordinal
		}
	}
	d := &model.DownloadDirectory{
		ID:        uuid.New(),
		UserID:    user.ID,
		Alias:     alias,
		Path:      path,
		Ordinal:   last + 1,
		CreatedAt: time.Now().UTC(),
	}
	m.dirs[d.ID] = d
	copy := *d
	return &copy, nil
}

func (m *memory) GetDirectory(ctx context.Context, user *model.User, ordinal int32) (*model.DownloadDirectory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.dirs {
		if d.UserID == user.ID && d.Ordinal == ordinal {
			copy := *d
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memory) ListDirectories(ctx context.Context, user *model.User) ([]model.DownloadDirectory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var dirs []model.DownloadDirectory
	for _, d := range m.dirs {
		if d.UserID == user.ID {
			dirs = append(dirs, *d)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Ordinal < dirs[j].Ordinal })
	return dirs, nil
}

func (m *memory) DeleteDirectory(ctx context.Context, user *model.User, ordinal int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, d := range m.dirs {
		if d.UserID == user.ID && d.Ordinal == ordinal {
			delete(m.dirs, id)
			return nil
		}
	}
	return nil
}

func (m *memory) DeleteDirectories(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, d := range m.dirs {
		if d.UserID == user.ID {
			delete(m.dirs, id)
		}
	}
	return nil
}

func (m *memory) AddServer(ctx context.Context, user *model.User, ns model.NewServer) (*model.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var username, password string
	if ns.Auth != nil {
		v, err := crypt(m.secret, user)
		if err != nil {
			return nil, fmt.Errorf("failed to init vault: %w", err)
		}
		username = ns.Auth.Username
		password = v.Encrypt(ns.Auth.Password)
	}
	s := &model.Server{
		ID:        uuid.New(),
		UserID:    user.ID,
		URL:       ns.URL,
		Username:  username,
		Password:  password,
		CreatedAt: time.Now().UTC(),
	}
	m.servers[s.ID] = s

	out := *s
	if err := m.decryptServer(user, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *memory) ListServers(ctx context.Context, user *model.User) ([]model.Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var servers []model.Server
	for _, s := range m.servers {
		if s.UserID == user.ID {
			out := *s
			if err := m.decryptServer(user, &out); err != nil {
				return nil, err
			}
			servers = append(servers, out)
		}
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].CreatedAt.Before(servers[j].CreatedAt) })
	return servers, nil
}

func (m *memory) decryptServer(user *model.User, s *model.Server) error {
	if s.Password == "" {
		return nil
	}
	v, err := crypt(m.secret, user)
	if err != nil {
		return fmt.Errorf("failed to init vault: %w", err)
	}
	plain, err := v.Decrypt(s.Password)
	if err != nil {
		return fmt.Errorf("failed to decrypt server credential: %w", err)
	}
	s.Password = plain
	return nil
}

func (m *memory) DeleteServers(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.servers {
		if s.UserID == user.ID {
			delete(m.servers, id)
		}
	}
	return nil
}

func (m *memory) CountTasksByServer(ctx context.Context, serverID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, t := range m.tasks {
		if t.ServerID == serverID {
			count++
		}
	}
	return count, nil
}

func (m *memory) RegisterMagnet(ctx context.Context, user *model.User, fullLink string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mg := &model.Magnet{
		ID:        uuid.New(),
		UserID:    user.ID,
		URL:       fullLink,
		CreatedAt: time.Now().UTC(),
	}
	m.magnets[mg.ID] = mg
	return mg.ID, nil
}

func (m *memory) GetMagnet(ctx context.Context, user *model.User, id uuid.UUID) (*model.Magnet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mg, exists := m.magnets[id]
	if !exists || mg.UserID != user.ID {
		return nil, ErrNotFound
	}
	copy := *mg
	return &copy, nil
}

func (m *memory) AddTask(ctx context.Context, user *model.User, serverID, magnetID uuid.UUID) (*model.DownloadTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &model.DownloadTask{
		ID:        uuid.New(),
		UserID:    user.ID,
		ServerID:  serverID,
		MagnetID:  magnetID,
		Status:    model.TaskCreated,
		CreatedAt: time.Now().UTC(),
	}
	m.tasks[t.ID] = t
	copy := *t
	return &copy, nil
}

func (m *memory) GetTask(ctx context.Context, id uuid.UUID) (*model.DownloadTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.tasks[id]
	if !exists {
		return nil, ErrNotFound
	}
	copy := *t
	return &copy, nil
}
