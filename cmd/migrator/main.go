package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/pickline/backend/internal/config"
	"github.com/pickline/backend/internal/database"
)

func main() {
	var dbURL, migrationsPath, migrationsTable string
	var down bool

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// DATABASE_URL wins; otherwise the URL is built from the same DB_* settings the server uses.
	defaultURL := os.Getenv("DATABASE_URL")
	if defaultURL == "" {
		if _, err := config.Load(); err != nil {
			log.Error("Failed to load config", "error", err)
			os.Exit(1)
		}
		defaultURL = database.GetConfig().URL()
	}

	flag.StringVar(&dbURL, "db-url", defaultURL, "postgres connection url")
	flag.StringVar(&migrationsPath, "migrations-path", "./migrations", "path to migrations")
	flag.StringVar(&migrationsTable, "migrations-table", "schema_migrations", "name of migrations table")
	flag.BoolVar(&down, "down", false, "roll back all migrations")
	flag.Parse()

	if dbURL == "" {
		log.Error("db-url is required (flag or DATABASE_URL)")
		os.Exit(1)
	}

	m, err := migrate.New(
		"file://"+migrationsPath,
		fmt.Sprintf("%s%sx-migrations-table=%s", dbURL, querySep(dbURL), migrationsTable),
	)
	if err != nil {
		log.Error("Failed to init migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("No migrations to apply")
			return
		}
		log.Error("Migration failed", "error", err)
		os.Exit(1)
	}

	log.Info("Migrations applied successfully", slog.Bool("down", down))
}

func querySep(url string) string {
	if strings.Contains(url, "?") {
		return "&"
	}
	return "?"
}
