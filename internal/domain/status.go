package domain

import (
	"fmt"
	"strings"
)

// Status is the workflow state of an entry.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusPublished     Status = "published"
	StatusRejected      Status = "rejected"
)

// Statuses lists every workflow state in pipeline order.
var Statuses = []Status{
	StatusDraft,
	StatusPendingReview,
	StatusApproved,
	StatusPublished,
	StatusRejected,
}

// NormalizeStatus maps a persisted status value onto the workflow states.
// Matching is on the space-trimmed, lower-cased value, the same as SQL
// lower(trim(status)). The legacy "in_review" spelling reads as
// pending_review; anything else outside the set reads as draft.
func NormalizeStatus(raw string) Status {
	s := Status(strings.ToLower(strings.Trim(raw, " ")))
	switch s {
	case StatusDraft, StatusPendingReview, StatusApproved, StatusPublished, StatusRejected:
		return s
	case "in_review":
		return StatusPendingReview
	default:
		return StatusDraft
	}
}

// ParseStatus is the strict counterpart of NormalizeStatus used for caller input.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(strings.ToLower(raw)))
	if s == "in_review" {
		return StatusPendingReview, nil
	}
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

// Kind identifies one of the three record families.
type Kind string

const (
	KindResearch    Kind = "research"
	KindPartnership Kind = "partnership"
	KindRanking     Kind = "ranking"
)

// Kinds lists the record kinds.
var Kinds = []Kind{KindResearch, KindPartnership, KindRanking}

// ParseKind accepts a kind name; "academic" is accepted for research.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.TrimSpace(strings.ToLower(raw)))
	switch k {
	case KindResearch, KindPartnership, KindRanking:
		return k, nil
	case "academic":
		return KindResearch, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrValidation, raw)
	}
}
