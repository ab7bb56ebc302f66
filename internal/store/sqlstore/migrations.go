package sqlstore

import (
	"embed"
	"fmt"
	"io/fs"

	"centralis.org/internal/migrate"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrations returns the up/down scripts for d, laid out as NNNN_name.up.sql
// and NNNN_name.down.sql at the root of the returned filesystem.
func Migrations(d Dialect) (fs.FS, error) {
	sub, err := fs.Sub(migrationFiles, "migrations/"+string(d))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: migrations for %s: %w", d, err)
	}
	return sub, nil
}

// Migrator returns a migration manager bound to this store's database and dialect.
func (s *Store) Migrator() (*migrate.Manager, error) {
	fsys, err := Migrations(s.dialect)
	if err != nil {
		return nil, err
	}
	var opts []migrate.Option
	if s.dialect == SQLite {
		opts = append(opts, migrate.WithBindVar(migrate.QuestionBindVar))
	}
	return migrate.NewManager(s.db, fsys, opts...), nil
}
