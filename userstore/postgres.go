package userstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ferdev7/tgauth"
)

// Connect creates a PostgreSQL connection pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

// Postgres implements tgauth.UserStore on a pgx connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres describes the newpostgres operation and its observable behavior.
//
// NewPostgres does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the users table when it does not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			phone TEXT NOT NULL UNIQUE,
			encrypted_session BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

// UpsertByPhone inserts the encrypted credential for a new phone or
// overwrites it for a known one, in one atomic statement.
func (s *Postgres) UpsertByPhone(ctx context.Context, phone string, encryptedSession []byte) (*tgauth.User, error) {
	now := time.Now().UTC()

	row := s.db.QueryRow(ctx,
		`INSERT INTO users (id, phone, encrypted_session, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (phone) DO UPDATE
		 SET encrypted_session = EXCLUDED.encrypted_session,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, phone, encrypted_session, created_at, updated_at`,
		uuid.NewString(), phone, encryptedSession, now,
	)

	var u tgauth.User
	if err := row.Scan(&u.ID, &u.Phone, &u.EncryptedSession, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert user by phone: %w", err)
	}
	return &u, nil
}
