package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)

// MigrationFiles is a pair of empty migration files ready to edit.
type MigrationFiles struct {
	Up   string
	Down string
}

// CreateMigration writes <version>_<name>.up.sql and .down.sql into dir,
// versioned by the UTC timestamp the embedded migrations are ordered by.
// Existing files are never overwritten.
func CreateMigration(dir, name string, now time.Time) (MigrationFiles, error) {
	if !migrationName.MatchString(name) {
		return MigrationFiles{}, fmt.Errorf("migration name %q must be lower snake_case", name)
	}
	base := now.UTC().Format("20060102150405") + "_" + name
	files := MigrationFiles{
		Up:   filepath.Join(dir, base+".up.sql"),
		Down: filepath.Join(dir, base+".down.sql"),
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return MigrationFiles{}, fmt.Errorf("create migrations dir: %w", err)
	}
	for _, path := range []string{files.Up, files.Down} {
		if _, err := os.Stat(path); err == nil {
			return MigrationFiles{}, fmt.Errorf("migration already exists: %s", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return MigrationFiles{}, err
		}
	}
	if err := os.WriteFile(files.Up, []byte("-- "+name+" up\n"), 0o644); err != nil {
		return MigrationFiles{}, err
	}
	if err := os.WriteFile(files.Down, []byte("-- "+name+" down\n"), 0o644); err != nil {
		_ = os.Remove(files.Up)
		return MigrationFiles{}, err
	}
	return files, nil
}
