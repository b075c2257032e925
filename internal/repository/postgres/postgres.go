package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	DBName   string `yaml:"db_name" env:"POSTGRES_DB" env-default:"book_market"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Pass     string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"postgres"`
	MaxConns int    `yaml:"max_conns" env:"POSTGRES_MAX_CONNS" env-default:"10"`
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		c.User,
		c.Pass,
		c.Host,
		c.Port,
		c.DBName,
	)
}

// Storage — Postgres-реализация хранилища пользователей и книг
type Storage struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Storage {
	return &Storage{db: pool}
}

func NewConnPool(ctx context.Context, config *Config) (*pgxpool.Pool, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	pgxPoolConfig.MaxConns = int32(config.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return pool, nil
}
