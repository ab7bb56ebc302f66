package domain

import (
	"time"
)

// Flatten renders e as a single-depth record for tabular consumers.
// Empty optional values become nil so they encode as JSON null.
func Flatten(e Entry) map[string]any {
	out := map[string]any{
		"id":               e.ID,
		"entry_type":       string(e.Kind),
		"status":           string(e.Status),
		"created_by":       e.CreatedBy,
		"created_at":       e.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":       e.UpdatedAt.UTC().Format(time.RFC3339),
		"reviewed_by":      orNull(e.ReviewedBy),
		"reviewed_at":      timeOrNull(e.ReviewedAt),
		"published_by":     orNull(e.PublishedBy),
		"published_at":     timeOrNull(e.PublishedAt),
		"rejection_reason": orNull(e.RejectionReason),
	}
	switch {
	case e.Kind == KindResearch && e.Research != nil:
		p := e.Research
		out["title"] = p.Title
		out["authors"] = p.Authors
		out["publication_type"] = p.PublicationType
		out["journal"] = orNull(p.Journal)
		out["year"] = p.Year
		out["doi"] = orNull(p.DOI)
		out["abstract"] = p.Abstract
		out["keywords"] = p.Keywords
		out["department"] = p.Department
	case e.Kind == KindPartnership && e.Partnership != nil:
		p := e.Partnership
		out["partner_name"] = p.PartnerName
		out["partner_type"] = p.PartnerType
		out["country"] = p.Country
		out["strategic_objectives"] = p.StrategicObjectives
		out["start_date"] = p.StartDate
		out["end_date"] = orNull(p.EndDate)
		out["contact_person"] = p.ContactPerson
		out["contact_email"] = p.ContactEmail
		out["description"] = p.Description
	case e.Kind == KindRanking && e.Ranking != nil:
		p := e.Ranking
		out["ranking_body"] = p.RankingBody
		out["program_name"] = p.ProgramName
		out["year"] = p.Year
		out["rank"] = p.Rank
		out["previous_rank"] = orNull(p.PreviousRank)
		out["category"] = p.Category
		out["accreditation_type"] = orNull(p.AccreditationType)
		out["notes"] = orNull(p.Notes)
	}
	return out
}

func orNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timeOrNull(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
