package domain

import "context"

// Store is the record persistence contract. Only the workflow engine holds a
// Store; every status change goes through ConditionalUpdate.
type Store interface {
	// Find returns ErrNotFound when no entry has the id.
	Find(ctx context.Context, id string) (Entry, error)
	// FindAll returns matching entries, newest first.
	FindAll(ctx context.Context, filter Filter) ([]Entry, error)
	// Insert persists a new entry; a duplicate id yields ErrConflict.
	Insert(ctx context.Context, e Entry) (Entry, error)
	// ConditionalUpdate applies patch only while the stored status equals expected.
	// It returns ErrConflict when the precondition fails and ErrNotFound for an unknown id.
	ConditionalUpdate(ctx context.Context, id string, expected Status, patch Patch) (Entry, error)
}
