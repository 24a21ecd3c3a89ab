package main

import (
	"fmt"

	"wallet-service/config"
	pgStorage "wallet-service/internal/adapter/storage/postgres"

	"github.com/rs/zerolog"
)

type migrateDirection int

const (
	migrateUp migrateDirection = iota
	migrateDown
)

// runMigrations applies or rolls back schema migrations and logs the resulting version.
func runMigrations(cfg config.DatabaseConfig, log zerolog.Logger, dir migrateDirection) (err error) {
	mg, err := pgStorage.NewMigrator(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := mg.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close migrator: %w", closeErr)
		}
	}()

	switch dir {
	case migrateUp:
		err = mg.Up()
	case migrateDown:
		err = mg.Down()
	default:
		return fmt.Errorf("unknown migration direction %d", dir)
	}
	if err != nil {
		return err
	}

	version, dirty, err := mg.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("database schema version")
	return nil
}
