package backend

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skeliit/skeli/backend/data"
	log "gopkg.in/inconshreveable/log15.v2"
)

// ConnProvider acquires database connections. Every successful Acquire must be paired with a Release on the returned
// connection.
type ConnProvider interface {
	Acquire(ctx context.Context) (data.Conn, error)
}

// NewPool builds a connection pool from conf. It does not connect; connectivity errors surface from Acquire.
func NewPool(ctx context.Context, conf DatabaseConfig, logConf LogConfig, logger log.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("bad database url: %w", err)
	}

	poolConfig.ConnConfig.User = conf.User
	poolConfig.ConnConfig.Password = conf.Password
	poolConfig.MaxConns = 10

	tracer, err := newTracer(logConf.PgxLevel, logger.New("module", "pgx"))
	if err != nil {
		return nil, err
	}
	if tracer != nil {
		poolConfig.ConnConfig.Tracer = tracer
	}

	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// PoolProvider is a ConnProvider backed by a *pgxpool.Pool.
type PoolProvider struct {
	Pool *pgxpool.Pool
}

func (p PoolProvider) Acquire(ctx context.Context) (data.Conn, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// withConn runs fn with a connection from db and releases it whether or not fn succeeds.
func withConn(ctx context.Context, db ConnProvider, fn func(conn data.Conn) error) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return fn(conn)
}
