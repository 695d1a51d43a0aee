package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skeliit/skeli/backend"
	"github.com/skeliit/skeli/backend/data"
	"github.com/urfave/cli"
	log "gopkg.in/inconshreveable/log15.v2"
)

const version = "0.1.0"

var configFlags = []cli.Flag{
	cli.StringFlag{Name: "config, c", Value: "skeli.conf", Usage: "path to config file"},
	cli.StringFlag{Name: "env-file", Value: ".env", Usage: "path to dotenv file with DB_URL, DB_USER and DB_PASS"},
}

func main() {
	app := cli.NewApp()
	app.Name = "skeli"
	app.Usage = "skeli website backend"
	app.Version = version

	app.Commands = []cli.Command{
		{
			Name:        "server",
			ShortName:   "s",
			Usage:       "run the server",
			Description: "run the skeli server",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "address, a", Value: "127.0.0.1", Usage: "address to listen on"},
				cli.StringFlag{Name: "port, p", Value: "8080", Usage: "port to listen on"},
				cli.StringFlag{Name: "static-url", Usage: "reverse proxy page and static asset requests to URL"},
			}, configFlags...),
			Action: Serve,
		},
		{
			Name:        "migrate",
			Usage:       "migrate the database",
			Description: "bring the database schema up to date",
			Flags:       configFlags,
			Action:      Migrate,
		},
		{
			Name:        "create-user",
			Usage:       "create a user",
			ArgsUsage:   "username",
			Description: "create a user with a random password",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "role, r", Value: string(backend.RoleUser), Usage: "role to grant (USER or ADMIN)"},
			}, configFlags...),
			Action: CreateUser,
		},
		{
			Name:        "reset-password",
			Usage:       "reset a user's password",
			ArgsUsage:   "username",
			Description: "reset a user's password",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "password, p", Usage: "password to set"},
			}, configFlags...),
			Action: ResetPassword,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*backend.Config, log.Logger, error) {
	conf, err := backend.LoadConfig(c.String("config"), c.String("env-file"), os.LookupEnv)
	if err != nil {
		return nil, nil, err
	}

	logger, err := backend.NewLogger(conf.Log)
	if err != nil {
		return nil, nil, err
	}

	return conf, logger, nil
}

func loadHTTPConfig(c *cli.Context, conf backend.HTTPConfig) (backend.HTTPConfig, error) {
	if c.IsSet("address") || conf.ListenAddress == "" {
		conf.ListenAddress = c.String("address")
	}
	if c.IsSet("port") || conf.ListenPort == "" {
		conf.ListenPort = c.String("port")
	}
	if c.IsSet("static-url") {
		conf.StaticURL = c.String("static-url")
	}

	if conf.ListenPort == "" {
		return conf, errors.New("missing server port")
	}

	return conf, nil
}

func newSessionStore(conf backend.SessionConfig, db backend.ConnProvider) (backend.SessionStore, error) {
	if conf.Store == "redis" {
		client, err := backend.NewRedisClient(conf.RedisURL)
		if err != nil {
			return nil, err
		}
		return backend.NewRedisSessionStore(client, "skeli.", conf.Lifetime), nil
	}

	return backend.NewPgSessionStore(db, conf.Lifetime), nil
}

func Serve(c *cli.Context) error {
	conf, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	httpConfig, err := loadHTTPConfig(c, conf.HTTP)
	if err != nil {
		return err
	}

	pool, err := backend.NewPool(context.Background(), conf.Database, conf.Log, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	db := backend.PoolProvider{Pool: pool}

	sessions, err := newSessionStore(conf.Session, db)
	if err != nil {
		return err
	}

	handler, err := backend.NewAppServer(httpConfig, conf.Session, db, sessions, logger.New("module", "http"))
	if err != nil {
		return err
	}

	listenAt := fmt.Sprintf("%s:%s", httpConfig.ListenAddress, httpConfig.ListenPort)
	logger.Info("Starting to listen", "address", listenAt)
	fmt.Printf("Starting to listen on: %s\n", listenAt)

	if err := http.ListenAndServe(listenAt, handler); err != nil {
		return fmt.Errorf("could not start web server: %w", err)
	}

	return nil
}

func Migrate(c *cli.Context) error {
	conf, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	return backend.Migrate(context.Background(), conf.Database, logger.New("module", "migrate"))
}

func connect(c *cli.Context) (*pgxpool.Pool, error) {
	conf, logger, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	return backend.NewPool(context.Background(), conf.Database, conf.Log, logger)
}

func usernameArg(c *cli.Context) (string, error) {
	if len(c.Args()) != 1 {
		cli.ShowCommandHelp(c, c.Command.Name)
		return "", cli.NewExitError("", 1)
	}
	return c.Args().First(), nil
}

func CreateUser(c *cli.Context) error {
	name, err := usernameArg(c)
	if err != nil {
		return err
	}

	role := backend.Role(c.String("role"))
	if role != backend.RoleUser && role != backend.RoleAdmin {
		return fmt.Errorf("bad role: %q", role)
	}

	pool, err := connect(c)
	if err != nil {
		return err
	}
	defer pool.Close()

	password, err := backend.GenRandPassword()
	if err != nil {
		return err
	}

	user := &data.User{
		Name: pgtype.Text{String: name, Valid: true},
		Role: pgtype.Text{String: string(role), Valid: true},
	}
	err = backend.SetPassword(user, password)
	if err != nil {
		return err
	}

	_, err = data.CreateUser(context.Background(), pool, user)
	if err != nil {
		return err
	}

	fmt.Println("User:", name)
	fmt.Println("Role:", role)
	fmt.Println("Password:", password)
	return nil
}

func ResetPassword(c *cli.Context) error {
	name, err := usernameArg(c)
	if err != nil {
		return err
	}

	pool, err := connect(c)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	user, err := data.SelectUserByName(ctx, pool, name)
	if err != nil {
		return fmt.Errorf("select user %q: %w", name, err)
	}

	password := c.String("password")
	if password == "" {
		password, err = backend.GenRandPassword()
		if err != nil {
			return err
		}
	}

	update := &data.User{}
	err = backend.SetPassword(update, password)
	if err != nil {
		return err
	}

	err = data.UpdateUser(ctx, pool, user.ID.Int32, update)
	if err != nil {
		return err
	}

	fmt.Println("User:", name)
	fmt.Println("Password:", password)
	return nil
}
