package data

import (
	"context"
	"strings"

	"errors"

	"github.com/jackc/pgsql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             pgtype.Int4
	Name           pgtype.Text
	Role           pgtype.Text
	PasswordDigest []byte
	PasswordSalt   []byte
}

const selectUserByPKSQL = `select
  "id",
  "name",
  "role",
  "password_digest",
  "password_salt"
from "users"
where "id"=$1`

func SelectUserByPK(
	ctx context.Context,
	db Queryer,
	id int32,
) (*User, error) {
	var row User
	err := db.QueryRow(ctx, selectUserByPKSQL, id).Scan(
		&row.ID,
		&row.Name,
		&row.Role,
		&row.PasswordDigest,
		&row.PasswordSalt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return &row, nil
}

func InsertUser(ctx context.Context, db Queryer, row *User) error {
	args := pgsql.Args{}

	var columns, values []string

	columns = append(columns, `name`)
	values = append(values, args.Use(&row.Name).String())
	if row.Role.Valid {
		columns = append(columns, `role`)
		values = append(values, args.Use(&row.Role).String())
	}
	columns = append(columns, `password_digest`)
	values = append(values, args.Use(&row.PasswordDigest).String())
	columns = append(columns, `password_salt`)
	values = append(values, args.Use(&row.PasswordSalt).String())

	sql := `insert into "users"(` + strings.Join(columns, ", ") + `)
values(` + strings.Join(values, ",") + `)
returning "id"
  `

	return db.QueryRow(ctx, sql, args.Values()...).Scan(&row.ID)
}

// UpdateUser sets the attributes of row that are valid or non-nil on the user with id.
func UpdateUser(ctx context.Context, db Queryer,
	id int32,
	row *User,
) error {
	sets := make([]string, 0, 4)
	args := pgsql.Args{}

	if row.Name.Valid {
		sets = append(sets, `name`+"="+args.Use(&row.Name).String())
	}
	if row.Role.Valid {
		sets = append(sets, `role`+"="+args.Use(&row.Role).String())
	}
	if row.PasswordDigest != nil {
		sets = append(sets, `password_digest`+"="+args.Use(&row.PasswordDigest).String())
	}
	if row.PasswordSalt != nil {
		sets = append(sets, `password_salt`+"="+args.Use(&row.PasswordSalt).String())
	}

	if len(sets) == 0 {
		return nil
	}

	sql := `update "users" set ` + strings.Join(sets, ", ") + ` where ` + `"id"=` + args.Use(id).String()

	commandTag, err := db.Exec(ctx, sql, args.Values()...)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}
