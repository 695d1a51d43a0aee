package testdata

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgxutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/scrypt"
)

var counter atomic.Int64

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func CreateUser(t testing.TB, db DB, ctx context.Context, attrs map[string]any) map[string]any {
	n := counter.Add(1)

	if attrs == nil {
		attrs = make(map[string]any)
	}

	password := "password"
	if p, ok := attrs["password"]; ok {
		password = fmt.Sprint(p)
		delete(attrs, "password")
	}

	salt := make([]byte, 8)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	digest, err := scrypt.Key([]byte(password), salt, 16384, 8, 1, 32)
	require.NoError(t, err)

	attrs["password_digest"] = digest
	attrs["password_salt"] = salt

	if _, ok := attrs["name"]; !ok {
		attrs["name"] = fmt.Sprintf("user%v", n)
	}

	user, err := pgxutil.Insert(ctx, db, "users", attrs)
	require.NoError(t, err)

	return user
}

func CreateComment(t testing.TB, db DB, ctx context.Context, attrs map[string]any) map[string]any {
	n := counter.Add(1)

	if attrs == nil {
		attrs = make(map[string]any)
	}

	if _, ok := attrs["author"]; !ok {
		attrs["author"] = fmt.Sprintf("Fan %v", n)
	}
	if _, ok := attrs["body"]; !ok {
		attrs["body"] = fmt.Sprintf("Great show %v", n)
	}

	comment, err := pgxutil.Insert(ctx, db, "comments", attrs)
	require.NoError(t, err)

	return comment
}
