package rbac

import (
	"context"
	"fmt"
	"strings"
	"time"

	"centralis.org/internal/audit"
	"centralis.org/internal/domain"
)

// Assignment maps one identity to one role. Role holds the stored string as-is;
// readers resolve it through the policy.
type Assignment struct {
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	AssignedBy string    `json:"assigned_by,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AssignmentStore persists role assignments keyed by normalized email.
type AssignmentStore interface {
	// GetAssignment reports found=false when no row exists.
	GetAssignment(ctx context.Context, email string) (Assignment, bool, error)
	PutAssignment(ctx context.Context, a Assignment) error
	// DeleteAssignment returns domain.ErrNotFound when no row exists.
	DeleteAssignment(ctx context.Context, email string) error
	ListAssignments(ctx context.Context) ([]Assignment, error)
}

// NormalizeIdentity trims and lower-cases an email identity.
func NormalizeIdentity(raw string) string {
	return strings.TrimSpace(strings.ToLower(raw))
}

// Directory resolves identities to roles and administers assignments.
type Directory struct {
	store  AssignmentStore
	policy *Policy
	now    func() time.Time
}

// NewDirectory builds a Directory; a nil policy selects DefaultPolicy.
func NewDirectory(store AssignmentStore, policy *Policy) *Directory {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Directory{store: store, policy: policy, now: func() time.Time { return time.Now().UTC() }}
}

// Policy returns the capability policy in effect.
func (d *Directory) Policy() *Policy { return d.policy }

// Resolve returns the role of identity. Missing or unrecognized rows resolve
// to the policy default; only store I/O failures are reported.
func (d *Directory) Resolve(ctx context.Context, identity string) (Role, error) {
	email := NormalizeIdentity(identity)
	if email == "" {
		return "", fmt.Errorf("%w: identity is required", domain.ErrUnauthorized)
	}
	a, found, err := d.store.GetAssignment(ctx, email)
	if err != nil {
		return "", domain.StorageError(err)
	}
	if !found {
		return d.policy.Default, nil
	}
	return d.policy.Resolve(a.Role), nil
}

// Require resolves identity and checks capability c.
func (d *Directory) Require(ctx context.Context, identity string, c Capability) (Role, error) {
	role, err := d.Resolve(ctx, identity)
	if err != nil {
		return "", err
	}
	if err := d.policy.Require(role, c); err != nil {
		return role, err
	}
	return role, nil
}

// Assign sets the role of identity on behalf of actor, who must administer.
func (d *Directory) Assign(ctx context.Context, actor, identity, role string) (Assignment, error) {
	if _, err := d.Require(ctx, actor, CapAdminister); err != nil {
		return Assignment{}, err
	}
	a, err := d.put(ctx, NormalizeIdentity(actor), identity, role)
	if err != nil {
		return Assignment{}, err
	}
	_ = audit.LogEvent(ctx, "rbac.role.assign", map[string]any{
		"email": a.Email,
		"role":  a.Role,
		"actor": a.AssignedBy,
	})
	return a, nil
}

// Revoke removes the assignment of identity, returning it to the default role.
func (d *Directory) Revoke(ctx context.Context, actor, identity string) error {
	if _, err := d.Require(ctx, actor, CapAdminister); err != nil {
		return err
	}
	email := NormalizeIdentity(identity)
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if err := d.store.DeleteAssignment(ctx, email); err != nil {
		return domain.StorageError(err)
	}
	_ = audit.LogEvent(ctx, "rbac.role.revoke", map[string]any{
		"email": email,
		"actor": NormalizeIdentity(actor),
	})
	return nil
}

// List returns every assignment; actor must administer.
func (d *Directory) List(ctx context.Context, actor string) ([]Assignment, error) {
	if _, err := d.Require(ctx, actor, CapAdminister); err != nil {
		return nil, err
	}
	return d.ListAll(ctx)
}

// ListAll returns every assignment without an actor check. Operator tooling only.
func (d *Directory) ListAll(ctx context.Context) ([]Assignment, error) {
	list, err := d.store.ListAssignments(ctx)
	if err != nil {
		return nil, domain.StorageError(err)
	}
	return list, nil
}

// Bootstrap writes an assignment without actor gating so the first
// administrator can be created from the operator CLI.
func (d *Directory) Bootstrap(ctx context.Context, identity, role string) (Assignment, error) {
	a, err := d.put(ctx, "bootstrap", identity, role)
	if err != nil {
		return Assignment{}, err
	}
	_ = audit.LogEvent(ctx, "rbac.role.bootstrap", map[string]any{
		"email": a.Email,
		"role":  a.Role,
	})
	return a, nil
}

func (d *Directory) put(ctx context.Context, by, identity, role string) (Assignment, error) {
	email := NormalizeIdentity(identity)
	if err := domain.ValidateEmail(email); err != nil {
		return Assignment{}, err
	}
	normalized := NormalizeRole(role)
	if !d.policy.Defined(string(normalized)) {
		return Assignment{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}
	a := Assignment{
		Email:      email,
		Role:       string(normalized),
		AssignedBy: by,
		UpdatedAt:  d.now(),
	}
	if err := d.store.PutAssignment(ctx, a); err != nil {
		return Assignment{}, domain.StorageError(err)
	}
	return a, nil
}
