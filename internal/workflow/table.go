// Package workflow owns every status change of an entry: the transition
// table, the actor predicates and the conditional write that applies them.
package workflow

import (
	"strings"
	"time"

	"centralis.org/internal/domain"
	"centralis.org/internal/rbac"
)

type edge struct {
	from, to domain.Status
	// creator lets the entry's creator fire the edge regardless of role.
	creator bool
	// any one of caps is sufficient.
	caps        []rbac.Capability
	needsReason bool
	effect      func(p *domain.Patch, actor string, now time.Time, reason string)
}

var table = []edge{
	{
		from: domain.StatusDraft, to: domain.StatusPendingReview,
		creator: true, caps: []rbac.Capability{rbac.CapReview, rbac.CapPublish},
	},
	{
		from: domain.StatusPendingReview, to: domain.StatusApproved,
		caps: []rbac.Capability{rbac.CapReview},
		effect: func(p *domain.Patch, actor string, now time.Time, _ string) {
			p.ReviewedBy, p.ReviewedAt = &actor, &now
		},
	},
	{
		from: domain.StatusPendingReview, to: domain.StatusRejected,
		caps: []rbac.Capability{rbac.CapReview}, needsReason: true,
		effect: func(p *domain.Patch, actor string, now time.Time, reason string) {
			p.ReviewedBy, p.ReviewedAt = &actor, &now
			p.RejectionReason = &reason
		},
	},
	{
		from: domain.StatusApproved, to: domain.StatusPublished,
		caps: []rbac.Capability{rbac.CapPublish},
		effect: func(p *domain.Patch, actor string, now time.Time, _ string) {
			p.PublishedBy, p.PublishedAt = &actor, &now
		},
	},
	{
		// publishedBy/publishedAt stay as history.
		from: domain.StatusPublished, to: domain.StatusDraft,
		caps: []rbac.Capability{rbac.CapPublish},
	},
	{
		from: domain.StatusRejected, to: domain.StatusDraft,
		creator: true,
		effect: func(p *domain.Patch, _ string, _ time.Time, _ string) {
			cleared := ""
			p.RejectionReason = &cleared
		},
	},
}

func lookup(from, to domain.Status) (edge, bool) {
	for _, e := range table {
		if e.from == from && e.to == to {
			return e, true
		}
	}
	return edge{}, false
}

// Legal reports whether the table has an edge from -> to.
func Legal(from, to domain.Status) bool {
	_, ok := lookup(from, to)
	return ok
}

func (e edge) permits(policy *rbac.Policy, role rbac.Role, actor string, entry domain.Entry) bool {
	if e.creator && strings.EqualFold(strings.TrimSpace(entry.CreatedBy), actor) {
		return true
	}
	for _, c := range e.caps {
		if policy.Has(role, c) {
			return true
		}
	}
	return false
}

func (e edge) patch(actor string, now time.Time, reason string) domain.Patch {
	p := domain.Patch{Status: e.to, UpdatedAt: now}
	if e.effect != nil {
		e.effect(&p, actor, now, reason)
	}
	return p
}
