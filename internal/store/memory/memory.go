// Package memory keeps entries and role assignments in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"centralis.org/internal/domain"
	"centralis.org/internal/rbac"
)

// Store implements domain.Store and rbac.AssignmentStore with a single mutex,
// so ConditionalUpdate is atomic with respect to every other call.
type Store struct {
	mu      sync.RWMutex
	entries map[string]domain.Entry
	roles   map[string]rbac.Assignment
}

var (
	_ domain.Store         = (*Store)(nil)
	_ rbac.AssignmentStore = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		entries: make(map[string]domain.Entry),
		roles:   make(map[string]rbac.Assignment),
	}
}

func (s *Store) Find(ctx context.Context, id string) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.Entry{}, fmt.Errorf("%w: entry %s", domain.ErrNotFound, id)
	}
	return clone(e), nil
}

func (s *Store) FindAll(ctx context.Context, filter domain.Filter) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.Matches(e) {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Insert(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[e.ID]; exists {
		return domain.Entry{}, fmt.Errorf("%w: entry %s already exists", domain.ErrConflict, e.ID)
	}
	e.Status = domain.NormalizeStatus(string(e.Status))
	s.entries[e.ID] = clone(e)
	return clone(e), nil
}

func (s *Store) ConditionalUpdate(ctx context.Context, id string, expected domain.Status, patch domain.Patch) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.Entry{}, fmt.Errorf("%w: entry %s", domain.ErrNotFound, id)
	}
	if e.Status != expected {
		return domain.Entry{}, fmt.Errorf("%w: entry %s is %s, expected %s", domain.ErrConflict, id, e.Status, expected)
	}
	updated := patch.Apply(e)
	s.entries[id] = clone(updated)
	return clone(updated), nil
}

func (s *Store) GetAssignment(ctx context.Context, email string) (rbac.Assignment, bool, error) {
	if err := ctx.Err(); err != nil {
		return rbac.Assignment{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.roles[rbac.NormalizeIdentity(email)]
	return a, ok, nil
}

func (s *Store) PutAssignment(ctx context.Context, a rbac.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Email = rbac.NormalizeIdentity(a.Email)
	s.roles[a.Email] = a
	return nil
}

func (s *Store) DeleteAssignment(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email = rbac.NormalizeIdentity(email)
	if _, ok := s.roles[email]; !ok {
		return fmt.Errorf("%w: no role assignment for %s", domain.ErrNotFound, email)
	}
	delete(s.roles, email)
	return nil
}

func (s *Store) ListAssignments(ctx context.Context) ([]rbac.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rbac.Assignment, 0, len(s.roles))
	for _, a := range s.roles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// clone copies the pointer-valued fields so callers never share state with the map.
func clone(e domain.Entry) domain.Entry {
	if e.ReviewedAt != nil {
		t := *e.ReviewedAt
		e.ReviewedAt = &t
	}
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		e.PublishedAt = &t
	}
	if e.Research != nil {
		p := *e.Research
		e.Research = &p
	}
	if e.Partnership != nil {
		p := *e.Partnership
		e.Partnership = &p
	}
	if e.Ranking != nil {
		p := *e.Ranking
		e.Ranking = &p
	}
	return e
}
