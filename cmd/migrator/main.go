package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"bookMarketBot/internal/config"
)

// migrator применяет SQL-файлы из каталога миграций по порядку имен.
// Примененные файлы запоминаются в schema_migrations, повторный запуск
// пропускает их.
func main() {
	var migrationsPath string
	flag.StringVar(&migrationsPath, "migrations-path", "migrations", "path to migrations directory")

	cfg := config.MustLoad()

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, cfg.Postgres.ConnString())
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer conn.Close(ctx)

	if err := run(ctx, conn, migrationsPath); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("migrations applied")
}

func run(ctx context.Context, conn *pgx.Conn, migrationsPath string) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	files, err := migrationFiles(migrationsPath)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no migration files found")
	}

	for _, file := range files {
		version := filepath.Base(file)

		applied, err := isApplied(ctx, conn, version)
		if err != nil {
			return err
		}
		if applied {
			log.Printf("skip %s (already applied)", version)
			continue
		}

		if err := apply(ctx, conn, file, version); err != nil {
			return fmt.Errorf("apply %s: %w", version, err)
		}

		log.Printf("applied %s", version)
	}

	return nil
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}

func isApplied(ctx context.Context, conn *pgx.Conn, version string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)",
		version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration state: %w", err)
	}
	return exists, nil
}

// apply выполняет файл и запись в schema_migrations в одной транзакции
func apply(ctx context.Context, conn *pgx.Conn, file, version string) error {
	sql, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sql)); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)",
		version,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
