// Package store selects the persistence backend from configuration.
package store

import (
	"context"
	"database/sql"

	"centralis.org/internal/domain"
	"centralis.org/internal/rbac"
	"centralis.org/internal/store/memory"
	"centralis.org/internal/store/sqlstore"
)

// Backend persists both entries and role assignments.
type Backend interface {
	domain.Store
	rbac.AssignmentStore
}

// Opened is a ready backend plus the handles its owner must manage.
type Opened struct {
	Backend Backend
	// DB is nil for the in-memory backend.
	DB     *sql.DB
	Memory *memory.Store
	SQL    *sqlstore.Store
}

// Close releases the database handle, if any.
func (o Opened) Close() error {
	if o.SQL == nil {
		return nil
	}
	return o.SQL.Close()
}

// Open returns the in-memory store for an empty URL and a SQL store otherwise.
// With migrate set, pending migrations are applied before returning.
func Open(ctx context.Context, dbURL string, migrate bool) (Opened, error) {
	if dbURL == "" {
		m := memory.New()
		return Opened{Backend: m, Memory: m}, nil
	}
	s, err := sqlstore.Open(dbURL)
	if err != nil {
		return Opened{}, err
	}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return Opened{}, err
	}
	if migrate {
		mgr, err := s.Migrator()
		if err != nil {
			_ = s.Close()
			return Opened{}, err
		}
		if _, err := mgr.Up(ctx); err != nil {
			_ = s.Close()
			return Opened{}, err
		}
	}
	return Opened{Backend: s, DB: s.DB(), SQL: s}, nil
}
