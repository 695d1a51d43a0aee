package backend

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/skeliit/skeli/backend/data"
)

// SessionStore maps session ids to principals. Principal returns data.ErrNotFound for unknown or expired sessions.
type SessionStore interface {
	Create(ctx context.Context, p *Principal) (id []byte, err error)
	Principal(ctx context.Context, id []byte) (*Principal, error)
	Delete(ctx context.Context, id []byte) error
}

func genSessionID() ([]byte, error) {
	sessionID := make([]byte, 16)
	_, err := io.ReadFull(rand.Reader, sessionID)
	if err != nil {
		return nil, fmt.Errorf("unable to read random bytes for session id: %w", err)
	}

	return sessionID, nil
}

// PgSessionStore keeps sessions in the sessions table. The role is read from users on every lookup so role changes
// take effect immediately. Start times and the expiry cutoff both come from the application clock.
type PgSessionStore struct {
	db       ConnProvider
	lifetime time.Duration
}

func NewPgSessionStore(db ConnProvider, lifetime time.Duration) *PgSessionStore {
	return &PgSessionStore{db: db, lifetime: lifetime}
}

func (s *PgSessionStore) Create(ctx context.Context, p *Principal) ([]byte, error) {
	sessionID, err := genSessionID()
	if err != nil {
		return nil, err
	}

	err = withConn(ctx, s.db, func(conn data.Conn) error {
		return data.InsertSession(ctx, conn, &data.Session{
			ID:        sessionID,
			UserID:    pgtype.Int4{Int32: p.UserID, Valid: true},
			StartTime: pgtype.Timestamptz{Time: time.Now(), Valid: true},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return sessionID, nil
}

func (s *PgSessionStore) Principal(ctx context.Context, id []byte) (*Principal, error) {
	var user *data.User
	err := withConn(ctx, s.db, func(conn data.Conn) error {
		var err error
		user, err = data.SelectUserBySessionID(ctx, conn, id, time.Now().Add(-s.lifetime))
		return err
	})
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, data.ErrNotFound
		}
		return nil, fmt.Errorf("select user by session: %w", err)
	}

	return principalFromUser(user), nil
}

func (s *PgSessionStore) Delete(ctx context.Context, id []byte) error {
	return withConn(ctx, s.db, func(conn data.Conn) error {
		return data.DeleteSession(ctx, conn, id)
	})
}
