package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"centralis.org/internal/audit"
	"centralis.org/internal/domain"
	"centralis.org/internal/ids"
	"centralis.org/internal/obs"
	"centralis.org/internal/rbac"
)

// RoleResolver is the part of the role directory the engine needs.
type RoleResolver interface {
	Resolve(ctx context.Context, identity string) (rbac.Role, error)
	Policy() *rbac.Policy
}

// Engine is the only holder of a domain.Store. Every status write goes through
// Transition, which applies it as a conditional update on the observed status.
type Engine struct {
	store    domain.Store
	roles    RoleResolver
	now      func() time.Time
	notifier Notifier
}

// Event describes one applied transition.
type Event struct {
	EntryID string        `json:"entry_id"`
	Kind    domain.Kind   `json:"kind"`
	From    domain.Status `json:"from"`
	To      domain.Status `json:"to"`
	Actor   string        `json:"actor"`
	At      time.Time     `json:"at"`
}

// Notifier receives events after a transition has been stored. Publish must not block.
type Notifier interface {
	Publish(Event)
}

// Option configures Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithNotifier registers a receiver for transition events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// NewEngine constructs an Engine.
func NewEngine(store domain.Store, roles RoleResolver, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		roles: roles,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func normalizeActor(actor string) (string, error) {
	actor = rbac.NormalizeIdentity(actor)
	if actor == "" {
		return "", fmt.Errorf("%w: actor identity is required", domain.ErrUnauthorized)
	}
	return actor, nil
}

// Create validates the payload and stores a new draft owned by actor.
func (e *Engine) Create(ctx context.Context, actor string, in domain.Entry) (domain.Entry, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return domain.Entry{}, err
	}
	kind, err := domain.ParseKind(string(in.Kind))
	if err != nil {
		return domain.Entry{}, err
	}
	in.Kind = kind
	if err := domain.ValidatePayload(in); err != nil {
		return domain.Entry{}, err
	}
	now := e.now()
	entry := domain.Entry{
		ID:          ids.New(),
		Kind:        kind,
		Status:      domain.StatusDraft,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
		Research:    in.Research,
		Partnership: in.Partnership,
		Ranking:     in.Ranking,
	}
	created, err := e.store.Insert(ctx, entry)
	if err != nil {
		return domain.Entry{}, domain.StorageError(err)
	}
	_ = audit.LogEvent(ctx, "workflow.entry.create", map[string]any{
		"entry_id": created.ID,
		"kind":     string(created.Kind),
		"actor":    actor,
	})
	return created, nil
}

// Get returns one entry to an authenticated actor.
func (e *Engine) Get(ctx context.Context, actor, id string) (domain.Entry, error) {
	if _, err := normalizeActor(actor); err != nil {
		return domain.Entry{}, err
	}
	entry, err := e.store.Find(ctx, id)
	if err != nil {
		return domain.Entry{}, domain.StorageError(err)
	}
	return entry, nil
}

// List returns entries matching filter, newest first.
func (e *Engine) List(ctx context.Context, actor string, filter domain.Filter) ([]domain.Entry, error) {
	if _, err := normalizeActor(actor); err != nil {
		return nil, err
	}
	list, err := e.store.FindAll(ctx, filter)
	if err != nil {
		return nil, domain.StorageError(err)
	}
	return list, nil
}

// Published returns published entries for the export surface, optionally
// restricted to one kind, newest first.
func (e *Engine) Published(ctx context.Context, kind domain.Kind) ([]domain.Entry, error) {
	list, err := e.store.FindAll(ctx, domain.Filter{Kind: kind, Status: domain.StatusPublished})
	if err != nil {
		return nil, domain.StorageError(err)
	}
	return list, nil
}

// Transition moves entry id to target on behalf of actor.
//
// Checks run in order: actor identity, role resolution, entry lookup, table
// edge, actor predicate, rejection reason. The write is conditional on the
// status observed at lookup; losing that race yields domain.ErrConflict.
func (e *Engine) Transition(ctx context.Context, actor, id string, target domain.Status, reason string) (updated domain.Entry, err error) {
	from := domain.Status("")
	defer func() {
		if from != "" {
			obs.ObserveTransition(string(from), string(target), domain.Code(err))
		}
	}()

	actor, err = normalizeActor(actor)
	if err != nil {
		return domain.Entry{}, err
	}
	role, err := e.roles.Resolve(ctx, actor)
	if err != nil {
		return domain.Entry{}, err
	}
	entry, err := e.store.Find(ctx, id)
	if err != nil {
		return domain.Entry{}, domain.StorageError(err)
	}
	from = entry.Status

	ed, ok := lookup(entry.Status, target)
	if !ok {
		return domain.Entry{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, entry.Status, target)
	}
	if !ed.permits(e.roles.Policy(), role, actor, entry) {
		return domain.Entry{}, fmt.Errorf("%w: role %q may not move %s -> %s", domain.ErrForbidden, role, entry.Status, target)
	}
	reason = strings.TrimSpace(reason)
	if ed.needsReason && reason == "" {
		return domain.Entry{}, fmt.Errorf("%w: a rejection reason is required", domain.ErrValidation)
	}

	updated, err = e.store.ConditionalUpdate(ctx, entry.ID, entry.Status, ed.patch(actor, e.now(), reason))
	if err != nil {
		return domain.Entry{}, domain.StorageError(err)
	}

	fields := map[string]any{
		"entry_id": updated.ID,
		"kind":     string(updated.Kind),
		"from":     string(entry.Status),
		"to":       string(updated.Status),
		"actor":    actor,
		"role":     string(role),
	}
	if ed.needsReason {
		fields["reason"] = reason
	}
	_ = audit.LogEvent(ctx, "workflow.transition", fields)
	if e.notifier != nil {
		e.notifier.Publish(Event{
			EntryID: updated.ID,
			Kind:    updated.Kind,
			From:    entry.Status,
			To:      updated.Status,
			Actor:   actor,
			At:      updated.UpdatedAt,
		})
	}
	return updated, nil
}
