package config

import (
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrationsPath returns the migrations directory, overridable via env
func migrationsPath() string {
	if p := os.Getenv("MIGRATIONS_PATH"); p != "" {
		return p
	}
	return "migrations"
}

func newMigrate() (*migrate.Migrate, error) {
	db, err := DB.DB()
	if err != nil {
		return nil, err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, err
	}

	return migrate.NewWithDatabaseInstance(
		"file://"+migrationsPath(),
		"postgres",
		driver,
	)
}

// ExecuteMigrations runs all pending database migrations
func ExecuteMigrations() {
	m, err := newMigrate()
	if err != nil {
		log.Fatal("Failed to create migrate instance:", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("Failed to run migrations:", err)
	}

	log.Println("Database migrations completed successfully")
}

// RollbackMigration rolls back the last migration
func RollbackMigration() {
	m, err := newMigrate()
	if err != nil {
		log.Fatal("Failed to create migrate instance:", err)
	}

	if err := m.Steps(-1); err != nil {
		log.Fatal("Failed to rollback migration:", err)
	}

	log.Println("Migration rolled back successfully")
}
