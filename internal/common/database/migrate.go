// internal/common/database/migrate.go
package database

import (
	"errors"
	"fmt"
	"path/filepath"

	"clinical-decision-pipeline/internal/common/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies every pending migration under cfg.MigrationsPath.
// It reports whether anything was applied.
func Migrate(cfg config.PostgresConfig) (bool, error) {
	dir, err := filepath.Abs(cfg.MigrationsPath)
	if err != nil {
		return false, fmt.Errorf("resolve migrations path: %w", err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(dir), cfg.GetURL())
	if err != nil {
		return false, fmt.Errorf("migration init failed: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("migration up failed: %w", err)
	}
	return true, nil
}
