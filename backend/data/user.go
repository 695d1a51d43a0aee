package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

type DuplicationError struct {
	Field string // Field or fields that caused the rejection
}

func (e DuplicationError) Error() string {
	return fmt.Sprintf("%s is already taken", e.Field)
}

func selectUser(ctx context.Context, db Queryer, sql string, args ...interface{}) (*User, error) {
	user := User{}

	err := db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.Name, &user.Role, &user.PasswordDigest, &user.PasswordSalt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

const getUserByNameSQL = `select id, name, role, password_digest, password_salt from users where name=$1`

func SelectUserByName(ctx context.Context, db Queryer, name string) (*User, error) {
	return selectUser(ctx, db, getUserByNameSQL, name)
}

const getUserBySessionIDSQL = `select users.id, name, role, password_digest, password_salt
from sessions
  join users on sessions.user_id=users.id
where sessions.id=$1
  and sessions.start_time > $2`

// SelectUserBySessionID returns the user owning session id. Sessions started before notBefore are treated as missing.
func SelectUserBySessionID(ctx context.Context, db Queryer, id []byte, notBefore time.Time) (*User, error) {
	return selectUser(ctx, db, getUserBySessionIDSQL, id, notBefore)
}

func CreateUser(ctx context.Context, db Queryer, user *User) (int32, error) {
	err := InsertUser(ctx, db, user)
	if err != nil {
		if strings.Contains(err.Error(), "users_name_unq") {
			return 0, DuplicationError{Field: "name"}
		}
		return 0, err
	}

	return user.ID.Int32, nil
}
