package database

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrationURL rewrites a postgres DSN to the scheme registered by the pgx/v5 migrate driver.
func MigrationURL(dsn string) (string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"):
		return "pgx5://" + strings.TrimPrefix(dsn, "postgres://"), nil
	case strings.HasPrefix(dsn, "postgresql://"):
		return "pgx5://" + strings.TrimPrefix(dsn, "postgresql://"), nil
	case strings.HasPrefix(dsn, "pgx5://"):
		return dsn, nil
	default:
		return "", eris.Errorf("database: unsupported DSN scheme for migrations: %q", dsn)
	}
}

// Migrate applies (Up) or rolls back one step of (Down) the embedded migrations.
func Migrate(dsn string, dir Direction) error {
	url, err := MigrationURL(dsn)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "database: open migration source")
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return eris.Wrap(err, "database: init migrate")
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			zap.L().Warn("database: close migrate", zap.NamedError("source", srcErr), zap.NamedError("db", dbErr))
		}
	}()

	switch dir {
	case Down:
		err = m.Steps(-1)
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return eris.Wrapf(err, "database: migrate %s", dir)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return eris.Wrap(verr, "database: read migration version")
	}
	if dirty {
		return eris.Errorf("database: migration version %d is dirty", version)
	}

	zap.L().Info("database migrations applied",
		zap.String("direction", string(dir)),
		zap.Uint("version", version),
		zap.Bool("no_change", errors.Is(err, migrate.ErrNoChange)),
	)
	return nil
}
