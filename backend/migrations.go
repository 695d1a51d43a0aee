package backend

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/tern/v2/migrate"
	log "gopkg.in/inconshreveable/log15.v2"
)

func newMigrator(ctx context.Context, conn *pgx.Conn, logger log.Logger) (*migrate.Migrator, error) {
	m, err := migrate.NewMigrator(ctx, conn, "schema_version")
	if err != nil {
		return nil, err
	}

	m.OnStart = func(sequence int32, name, direction, sql string) {
		logger.Info("migrating", "sequence", sequence, "name", name, "direction", direction)
	}

	m.AppendMigration("Create users", `
    create table users(
      id serial primary key,
      name varchar(30) not null check(name ~ '\A[a-zA-Z0-9]+\Z'),
      role varchar not null default 'USER',
      password_digest bytea not null,
      password_salt bytea not null
    );

    create unique index users_name_unq on users (lower(name));
  `, `drop table users;`)

	m.AppendMigration("Create sessions", `
    create unlogged table sessions(
      id bytea primary key,
      user_id integer not null references users on delete cascade,
      start_time timestamp with time zone not null default now()
    );

    create index on sessions (user_id);
  `, `drop table sessions;`)

	m.AppendMigration("Create comments", `
    create table comments(
      id serial primary key,
      author varchar not null,
      body text not null,
      creation_time timestamp with time zone not null default now()
    );

    create index on comments (creation_time);
  `, `drop table comments;`)

	return m, nil
}

// Migrate brings the schema of the database described by conf up to date on a dedicated connection.
func Migrate(ctx context.Context, conf DatabaseConfig, logger log.Logger) error {
	connConfig, err := pgx.ParseConfig(conf.URL)
	if err != nil {
		return err
	}
	connConfig.User = conf.User
	connConfig.Password = conf.Password

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	m, err := newMigrator(ctx, conn, logger)
	if err != nil {
		return err
	}

	return m.Migrate(ctx)
}
