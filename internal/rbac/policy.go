package rbac

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"centralis.org/internal/domain"
)

// Role is a normalized role name.
type Role string

// Capability is a permission derived from a role.
type Capability string

const (
	CapReview     Capability = "review"
	CapPublish    Capability = "publish"
	CapAdminister Capability = "administer"
)

var knownCapabilities = map[Capability]struct{}{
	CapReview:     {},
	CapPublish:    {},
	CapAdminister: {},
}

// NormalizeRole trims and lower-cases a raw role string.
func NormalizeRole(raw string) Role {
	return Role(strings.TrimSpace(strings.ToLower(raw)))
}

// Policy maps roles to capabilities and names the lowest-privilege default role.
type Policy struct {
	Default Role
	Roles   map[Role][]Capability
	caps    map[Role]map[Capability]struct{}
}

// DefaultPolicy covers both the author/reviewer/admin and the
// professor/department_head/academic_director vocabularies.
func DefaultPolicy() *Policy {
	p, err := NewPolicy("author", map[Role][]Capability{
		"author":            nil,
		"professor":         nil,
		"department_head":   {CapReview},
		"reviewer":          {CapReview, CapPublish},
		"academic_director": {CapReview, CapPublish, CapAdminister},
		"admin":             {CapReview, CapPublish, CapAdminister},
	})
	if err != nil {
		panic(err)
	}
	return p
}

// NewPolicy validates and indexes a role table.
func NewPolicy(def Role, roles map[Role][]Capability) (*Policy, error) {
	p := &Policy{
		Default: NormalizeRole(string(def)),
		Roles:   make(map[Role][]Capability, len(roles)),
		caps:    make(map[Role]map[Capability]struct{}, len(roles)),
	}
	for raw, list := range roles {
		role := NormalizeRole(string(raw))
		if role == "" {
			return nil, fmt.Errorf("rbac: empty role name in policy")
		}
		if _, dup := p.caps[role]; dup {
			return nil, fmt.Errorf("rbac: role %q defined twice", role)
		}
		set := make(map[Capability]struct{}, len(list))
		clean := make([]Capability, 0, len(list))
		for _, c := range list {
			c = Capability(strings.TrimSpace(strings.ToLower(string(c))))
			if _, ok := knownCapabilities[c]; !ok {
				return nil, fmt.Errorf("rbac: role %q has unknown capability %q", role, c)
			}
			if _, seen := set[c]; seen {
				continue
			}
			set[c] = struct{}{}
			clean = append(clean, c)
		}
		sort.Slice(clean, func(i, j int) bool { return clean[i] < clean[j] })
		p.caps[role] = set
		p.Roles[role] = clean
	}
	if p.Default == "" {
		return nil, fmt.Errorf("rbac: default role is required")
	}
	if _, ok := p.caps[p.Default]; !ok {
		return nil, fmt.Errorf("rbac: default role %q is not defined", p.Default)
	}
	if len(p.caps[p.Default]) != 0 {
		return nil, fmt.Errorf("rbac: default role %q must not carry capabilities", p.Default)
	}
	return p, nil
}

// ParsePolicyYAML decodes a policy document:
//
//	default: author
//	roles:
//	  author: []
//	  reviewer: [review, publish]
//	  admin: [review, publish, administer]
func ParsePolicyYAML(data []byte) (*Policy, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("rbac: policy payload is empty")
	}
	var doc struct {
		Default string              `yaml:"default"`
		Roles   map[string][]string `yaml:"roles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rbac: decode policy: %w", err)
	}
	roles := make(map[Role][]Capability, len(doc.Roles))
	for name, list := range doc.Roles {
		caps := make([]Capability, 0, len(list))
		for _, c := range list {
			caps = append(caps, Capability(c))
		}
		role := NormalizeRole(name)
		if _, dup := roles[role]; dup {
			return nil, fmt.Errorf("rbac: role %q defined twice", role)
		}
		roles[role] = caps
	}
	return NewPolicy(Role(doc.Default), roles)
}

// LoadPolicyFile reads a YAML policy from disk.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rbac: read %s: %w", path, err)
	}
	p, err := ParsePolicyYAML(data)
	if err != nil {
		return nil, fmt.Errorf("rbac: %s: %w", path, err)
	}
	return p, nil
}

// Resolve maps a stored role string onto a defined role; anything unmatched
// resolves to the default role.
func (p *Policy) Resolve(raw string) Role {
	role := NormalizeRole(raw)
	if _, ok := p.caps[role]; ok {
		return role
	}
	return p.Default
}

// Defined reports whether the normalized role exists in the policy.
func (p *Policy) Defined(raw string) bool {
	_, ok := p.caps[NormalizeRole(raw)]
	return ok
}

// Has reports whether role carries capability c.
func (p *Policy) Has(role Role, c Capability) bool {
	set, ok := p.caps[NormalizeRole(string(role))]
	if !ok {
		return false
	}
	_, ok = set[c]
	return ok
}

// Require returns domain.ErrForbidden unless role carries capability c.
func (p *Policy) Require(role Role, c Capability) error {
	if !p.Has(role, c) {
		return fmt.Errorf("%w: role %q lacks %s", domain.ErrForbidden, role, c)
	}
	return nil
}

// Capabilities returns the sorted capabilities of role.
func (p *Policy) Capabilities(role Role) []Capability {
	list := p.Roles[NormalizeRole(string(role))]
	out := make([]Capability, len(list))
	copy(out, list)
	return out
}

// RoleNames returns the defined roles in sorted order.
func (p *Policy) RoleNames() []Role {
	out := make([]Role, 0, len(p.Roles))
	for r := range p.Roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
