package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	iofs "github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/alumunity/messaging-api/internal/config"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/entities"
	"github.com/alumunity/messaging-api/migrations"
)

// Migrate brings the schema up to date. MySQL runs the bundled SQL migrations;
// other drivers fall back to gorm AutoMigrate of the entity set.
func Migrate(db *gorm.DB, cfg Config, log zerolog.Logger) error {
	switch cfg.Driver {
	case config.DriverMySQL, "":
		return migrateMySQL(cfg.DSN, log)
	default:
		log.Info().Str("driver", cfg.Driver).Msg("running gorm auto-migrate")
		if err := db.AutoMigrate(entities.All()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
}

func migrateMySQL(dsn string, log zerolog.Logger) (err error) {
	entries, err := fs.ReadDir(migrations.FS, migrations.MySQLDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			log.Debug().Str("file", entry.Name()).Msg("found migration file")
		}
	}

	parsed, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("parse mysql dsn: %w", err)
	}
	parsed.MultiStatements = true
	parsed.ParseTime = true

	sqlDB, err := sql.Open("mysql", parsed.FormatDSN())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	driver, err := migratemysql.WithInstance(sqlDB, &migratemysql.Config{
		MigrationsTable: "messaging_schema_migrations",
	})
	if err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("initialize mysql driver: %w", err)
	}
	defer func() {
		if closeErr := driver.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close migration connection: %w", closeErr)
		}
	}()

	source, err := iofs.New(migrations.FS, migrations.MySQLDir)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	defer func() {
		if closeErr := source.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close migration source: %w", closeErr)
		}
	}()

	migrator, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	version, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info().Msg("no migrations have been applied yet")
	case err != nil:
		log.Warn().Err(err).Msg("error getting migration version")
	default:
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration state")
	}

	// A dirty version failed half way. Step back one so Up replays it; the SQL files
	// only use IF NOT EXISTS statements.
	if dirty {
		target := int(version) - 1
		if target < 1 {
			target = migratedb.NilVersion
		}
		log.Warn().Uint("version", version).Int("target", target).Msg("database is in dirty state, forcing version")
		if forceErr := migrator.Force(target); forceErr != nil {
			return fmt.Errorf("force version %d to clear dirty state: %w", version, forceErr)
		}
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no new migrations to apply")
			return nil
		}
		log.Error().Err(err).Msg("failed to apply migrations")
		return fmt.Errorf("apply migrations: %w", err)
	}

	if finalVersion, _, versionErr := migrator.Version(); versionErr == nil {
		log.Info().Uint("version", finalVersion).Msg("migrations applied")
	}
	return nil
}
