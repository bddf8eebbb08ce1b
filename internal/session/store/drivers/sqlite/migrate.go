package sqlite

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/sessiond/internal/session/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrDirtySchema is returned when a previous migration stopped part way.
// The sessions table is left alone until an operator forces a version.
var ErrDirtySchema = errors.New("sqlite: session schema is dirty")

// ApplyMigrations brings the session schema up to the newest embedded
// version and reports the version it ended on. The migrate instance is never
// closed because that would close the store's *sql.DB with it.
func (s *Store) ApplyMigrations() (uint, error) {
	m, err := s.migrator()
	if err != nil {
		return 0, err
	}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return 0, ErrDirtySchema
	} else if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate sessions schema: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// SchemaVersion reports the applied schema version; 0 means none applied.
func (s *Store) SchemaVersion() (uint, bool, error) {
	m, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite migration driver: %w", err)
	}
	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("embedded migrations: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "sqlite", driver)
}
