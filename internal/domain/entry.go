package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Entry is one workflow-tracked record.
type Entry struct {
	ID              string     `json:"id"`
	Kind            Kind       `json:"kind"`
	Status          Status     `json:"status"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	PublishedBy     string     `json:"published_by,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	Research    *Research    `json:"research,omitempty"`
	Partnership *Partnership `json:"partnership,omitempty"`
	Ranking     *Ranking     `json:"ranking,omitempty"`
}

// Research is the payload of an academic research entry.
type Research struct {
	Title           string `json:"title" validate:"required,min=3"`
	Authors         string `json:"authors" validate:"required,min=2"`
	PublicationType string `json:"publication_type" validate:"required,oneof=journal_article conference_paper book_chapter working_paper blog_post"`
	Journal         string `json:"journal"`
	Year            string `json:"year" validate:"required,len=4,numeric"`
	DOI             string `json:"doi"`
	Abstract        string `json:"abstract" validate:"required,min=20"`
	Keywords        string `json:"keywords" validate:"required,min=2"`
	Department      string `json:"department" validate:"required"`
}

// Partnership is the payload of an institutional partnership entry.
type Partnership struct {
	PartnerName         string `json:"partner_name" validate:"required,min=2"`
	PartnerType         string `json:"partner_type" validate:"required,oneof=corporate academic government ngo"`
	Country             string `json:"country" validate:"required,min=2"`
	StrategicObjectives string `json:"strategic_objectives" validate:"required,min=10"`
	StartDate           string `json:"start_date" validate:"required"`
	EndDate             string `json:"end_date"`
	ContactPerson       string `json:"contact_person" validate:"required,min=2"`
	ContactEmail        string `json:"contact_email" validate:"required,email"`
	Description         string `json:"description" validate:"required,min=10"`
}

// Ranking is the payload of a ranking or accreditation entry.
type Ranking struct {
	RankingBody       string `json:"ranking_body" validate:"required,min=2"`
	ProgramName       string `json:"program_name" validate:"required,min=2"`
	Year              string `json:"year" validate:"required,len=4,numeric"`
	Rank              string `json:"rank" validate:"required"`
	PreviousRank      string `json:"previous_rank"`
	Category          string `json:"category" validate:"required"`
	AccreditationType string `json:"accreditation_type"`
	Notes             string `json:"notes"`
}

// Payload returns the kind-specific payload, or nil when it is missing.
func (e Entry) Payload() any {
	switch e.Kind {
	case KindResearch:
		if e.Research != nil {
			return e.Research
		}
	case KindPartnership:
		if e.Partnership != nil {
			return e.Partnership
		}
	case KindRanking:
		if e.Ranking != nil {
			return e.Ranking
		}
	}
	return nil
}

// EncodePayload serializes the kind-specific payload for storage.
func (e Entry) EncodePayload() ([]byte, error) {
	p := e.Payload()
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// DecodePayload fills the payload field matching e.Kind from stored JSON.
func (e *Entry) DecodePayload(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	var target any
	switch e.Kind {
	case KindResearch:
		e.Research = &Research{}
		target = e.Research
	case KindPartnership:
		e.Partnership = &Partnership{}
		target = e.Partnership
	case KindRanking:
		e.Ranking = &Ranking{}
		target = e.Ranking
	default:
		return fmt.Errorf("decode payload: unknown kind %q", e.Kind)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// Patch carries the workflow-owned fields written together with a status change.
// Nil pointers leave the stored value untouched; a pointer to "" clears a string field.
type Patch struct {
	Status          Status
	UpdatedAt       time.Time
	ReviewedBy      *string
	ReviewedAt      *time.Time
	PublishedBy     *string
	PublishedAt     *time.Time
	RejectionReason *string
}

// Apply returns a copy of e with the patch applied.
func (p Patch) Apply(e Entry) Entry {
	e.Status = p.Status
	e.UpdatedAt = p.UpdatedAt
	if p.ReviewedBy != nil {
		e.ReviewedBy = *p.ReviewedBy
	}
	if p.ReviewedAt != nil {
		t := *p.ReviewedAt
		e.ReviewedAt = &t
	}
	if p.PublishedBy != nil {
		e.PublishedBy = *p.PublishedBy
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		e.PublishedAt = &t
	}
	if p.RejectionReason != nil {
		e.RejectionReason = *p.RejectionReason
	}
	return e
}

// Filter selects entries; zero fields match everything.
type Filter struct {
	Kind      Kind
	Status    Status
	CreatedBy string
}

// Matches reports whether e satisfies the filter.
func (f Filter) Matches(e Entry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.CreatedBy != "" && !strings.EqualFold(e.CreatedBy, f.CreatedBy) {
		return false
	}
	return true
}
