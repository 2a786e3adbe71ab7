// internal/storage/postgres.go
// Package storage provides the PostgreSQL implementation of the Store
// interface. This implementation is intended for production use.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/red-avtovo/r-trans-bot/internal/model"
)

// postgres keeps all bot state in a PostgreSQL database behind a bounded
// connection pool. Every operation acquires a connection for one query and
// releases it on return, error paths included.
type postgres struct {
	db     *pgxpool.Pool
	secret string // process-wide vault secret, never persisted
}

// NewPostgres creates a new PostgreSQL storage implementation.
// It establishes a connection pool to the database and initializes the
// schema.
// Parameters:
//   - dsn: Database connection string in PostgreSQL format
//   - secret: process-wide secret for credential encryption
func NewPostgres(dsn, secret string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	// Bounded pool: at most 15 concurrent connections.
	config.MaxConns = 15
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &postgres{db: pool, secret: secret}, nil
}

// initSchema creates all required tables and indexes if they don't exist.
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
		-- Registered chat users. The salt seeds the credential vault.
		CREATE TABLE IF NOT EXISTS users (
		    id BIGINT PRIMARY KEY,
		    chat BIGINT NOT NULL,
		    first_name TEXT NOT NULL,
		    last_name TEXT NOT NULL DEFAULT '',
		    username TEXT NOT NULL DEFAULT '',
		    salt TEXT NOT NULL,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		-- Torrent daemons. password holds vault ciphertext.
		CREATE TABLE IF NOT EXISTS servers (
		    id UUID PRIMARY KEY,
		    user_id BIGINT NOT NULL REFERENCES users(id),
		    url TEXT NOT NULL,
		    username TEXT NOT NULL DEFAULT '',
		    password TEXT NOT NULL DEFAULT '',
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_servers_user_id ON servers(user_id);

		-- Download directories, addressed by a per-user ordinal.
		CREATE TABLE IF NOT EXISTS dirs (
		    id UUID PRIMARY KEY,
		    user_id BIGINT NOT NULL REFERENCES users(id),
		    alias TEXT NOT NULL,
		    path TEXT NOT NULL,
		    ordinal INTEGER NOT NULL,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    UNIQUE(user_id, ordinal)
		);

		-- Registered magnets; url is the full serialized link.
		CREATE TABLE IF NOT EXISTS magnets (
		    id UUID PRIMARY KEY,
		    user_id BIGINT NOT NULL REFERENCES users(id),
		    url TEXT NOT NULL,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_magnets_user_id ON magnets(user_id);

		-- Download tasks, written only after daemon acceptance.
		CREATE TABLE IF NOT EXISTS tasks (
		    id UUID PRIMARY KEY,
		    user_id BIGINT NOT NULL REFERENCES users(id),
		    server_id UUID NOT NULL REFERENCES servers(id),
		    magnet_id UUID NOT NULL REFERENCES magnets(id),
		    status TEXT NOT NULL,
		    description TEXT NOT NULL DEFAULT '',
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_server_id ON tasks(server_id);
	`

	_, err := db.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool
func (p *postgres) Close() {
	p.db.Close()
}

func (p *postgres) SaveUser(ctx context.Context, nu model.NewUser) (*model.User, error) {
	query := `INSERT INTO users (id, chat, first_name, last_name, username, salt, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := p.db.Exec(ctx, query, nu.ID, nu.Chat, nu.FirstName, nu.LastName, nu.Username, nu.Salt, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return p.GetUser(ctx, nu.ID)
}

func (p *postgres) GetUser(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, chat, first_name, last_name, username, salt, created_at FROM users WHERE id = $1`
	var u model.User
	err := p.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Chat, &u.FirstName, &u.LastName, &u.Username, &u.Salt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (p *postgres) AddDirectory(ctx context.Context, user *model.User, alias, path string) (*model.DownloadDirectory, error) {
	next, err := p.nextDirectoryOrdinal(ctx, user)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	query := `INSERT INTO dirs (id, user_id, alias, path, ordinal, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = p.db.Exec(ctx, query, id, user.ID, alias, path, next, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to add directory: %w", err)
	}
	return p.GetDirectory(ctx, user, next)
}

// nextDirectoryOrdinal assigns max(existing)+1, starting at 1.
func (p *postgres) nextDirectoryOrdinal(ctx context.Context, user *model.User) (int32, error) {
	query := `SELECT COALESCE(MAX(ordinal), 0) FROM dirs WHERE user_id = $1`
	var last int32
	if err := p.db.QueryRow(ctx, query, user.ID).Scan(&last); err != nil {
		return 0, fmt.Errorf("failed to get last directory ordinal: %w", err)
	}
	return last + 1, nil
}

func (p *postgres) GetDirectory(ctx context.Context, user *model.User, ordinal int32) (*model.DownloadDirectory, error) {
	query := `SELECT id, user_id, alias, path, ordinal, created_at FROM dirs WHERE user_id = $1 AND ordinal = $2`
	var d model.DownloadDirectory
	err := p.db.QueryRow(ctx, query, user.ID, ordinal).Scan(&d.ID, &d.UserID, &d.Alias, &d.Path, &d.Ordinal, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get directory: %w", err)
	}
	return &d, nil
}

func (p *postgres) ListDirectories(ctx context.Context, user *model.User) ([]model.DownloadDirectory, error) {
	query := `SELECT id, user_id, alias, path, ordinal, created_at FROM dirs WHERE user_id = $1 ORDER BY ordinal`
	rows, err := p.db.Query(ctx, query, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}
	defer rows.Close()

	var dirs []model.DownloadDirectory
	for rows.Next() {
		var d model.DownloadDirectory
		if err := rows.Scan(&d.ID, &d.UserID, &d.Alias, &d.Path, &d.Ordinal, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
		dirs = append(dirs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating directories: %w", err)
	}
	return dirs, nil
}

func (p *postgres) DeleteDirectory(ctx context.Context, user *model.User, ordinal int32) error {
	_, err := p.db.Exec(ctx, `DELETE FROM dirs WHERE user_id = $1 AND ordinal = $2`, user.ID, ordinal)
	if err != nil {
		return fmt.Errorf("failed to delete directory: %w", err)
	}
	return nil
}

func (p *postgres) DeleteDirectories(ctx context.Context, user *model.User) error {
	_, err := p.db.Exec(ctx, `DELETE FROM dirs WHERE user_id = $1`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to delete directories: %w", err)
	}
	return nil
}

func (p *postgres) AddServer(ctx context.Context, user *model.User, ns model.NewServer) (*model.Server, error) {
	var username, password string
	if ns.Auth != nil {
		v, err := crypt(p.secret, user)
		if err != nil {
			return nil, fmt.Errorf("failed to init vault: %w", err)
		}
		username = ns.Auth.Username
		password = v.Encrypt(ns.Auth.Password)
	}

	id := uuid.New()
	query := `INSERT INTO servers (id, user_id, url, username, password, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := p.db.Exec(ctx, query, id, user.ID, ns.URL, username, password, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to add server: %w", err)
	}
	return p.getServer(ctx, user, id)
}

func (p *postgres) getServer(ctx context.Context, user *model.User, id uuid.UUID) (*model.Server, error) {
	query := `SELECT id, user_id, url, username, password, created_at FROM servers WHERE user_id = $1 AND id = $2`
	var s model.Server
	err := p.db.QueryRow(ctx, query, user.ID, id).Scan(&s.ID, &s.UserID, &s.URL, &s.Username, &s.Password, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	if err := p.decryptServer(user, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *postgres) ListServers(ctx context.Context, user *model.User) ([]model.Server, error) {
	query := `SELECT id, user_id, url, username, password, created_at FROM servers WHERE user_id = $1`
	rows, err := p.db.Query(ctx, query, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	var servers []model.Server
	for rows.Next() {
		var s model.Server
		if err := rows.Scan(&s.ID, &s.UserID, &s.URL, &s.Username, &s.Password, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		if err := p.decryptServer(user, &s); err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating servers: %w", err)
	}
	return servers, nil
}

// decryptServer replaces the stored ciphertext with the plaintext password.
// Runs on every read path; the plaintext is never written back.
func (p *postgres) decryptServer(user *model.User, s *model.Server) error {
	if s.Password == "" {
		return nil
	}
	v, err := crypt(p.secret, user)
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

func (p *postgres) DeleteServers(ctx context.Context, user *model.User) error {
	_, err := p.db.Exec(ctx, `DELETE FROM servers WHERE user_id = $1`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to delete servers: %w", err)
	}
	return nil
}

func (p *postgres) CountTasksByServer(ctx context.Context, serverID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.QueryRow(ctx, `SELECT COUNT(id) FROM tasks WHERE server_id = $1`, serverID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

func (p *postgres) RegisterMagnet(ctx context.Context, user *model.User, fullLink string) (uuid.UUID, error) {
	id := uuid.New()
	query := `INSERT INTO magnets (id, user_id, url, created_at) VALUES ($1, $2, $3, $4)`
	_, err := p.db.Exec(ctx, query, id, user.ID, fullLink, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to register magnet: %w", err)
	}
	return id, nil
}

func (p *postgres) GetMagnet(ctx context.Context, user *model.User, id uuid.UUID) (*model.Magnet, error) {
	query := `SELECT id, user_id, url, created_at FROM magnets WHERE user_id = $1 AND id = $2`
	var m model.Magnet
	err := p.db.QueryRow(ctx, query, user.ID, id).Scan(&m.ID, &m.UserID, &m.URL, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get magnet: %w", err)
	}
	return &m, nil
}

func (p *postgres) AddTask(ctx context.Context, user *model.User, serverID, magnetID uuid.UUID) (*model.DownloadTask, error) {
	id := uuid.New()
	query := `INSERT INTO tasks (id, user_id, server_id, magnet_id, status, description, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := p.db.Exec(ctx, query, id, user.ID, serverID, magnetID, string(model.TaskCreated), "", time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to add task: %w", err)
	}
	return p.GetTask(ctx, id)
}

func (p *postgres) GetTask(ctx context.Context, id uuid.UUID) (*model.DownloadTask, error) {
	query := `SELECT id, user_id, server_id, magnet_id, status, description, created_at FROM tasks WHERE id = $1`
	var t model.DownloadTask
	var status string
	err := p.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.UserID, &t.ServerID, &t.MagnetID, &status, &t.Description, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	parsed, ok := model.ParseTaskStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown task status %q", status)
	}
	t.Status = parsed
	return &t, nil
}
