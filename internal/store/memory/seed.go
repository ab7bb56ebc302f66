package memory

import (
	"context"
	"time"

	"centralis.org/internal/domain"
	"centralis.org/internal/ids"
	"centralis.org/internal/rbac"
)

// Demo identities created by SeedDemo.
const (
	DemoDirector = "director@demo.example.edu"
	DemoHead     = "head@demo.example.edu"
	DemoAuthor   = "author@demo.example.edu"
	DemoAuthor2  = "author2@demo.example.edu"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func at(s string) *time.Time {
	t := day(s)
	return &t
}

// SeedDemo loads a small fixture covering every workflow state and the three
// record kinds, plus role assignments for the demo identities.
func SeedDemo(ctx context.Context, s *Store) error {
	roles := []rbac.Assignment{
		{Email: DemoDirector, Role: "academic_director", AssignedBy: "seed"},
		{Email: DemoHead, Role: "department_head", AssignedBy: "seed"},
		{Email: DemoAuthor, Role: "professor", AssignedBy: "seed"},
		{Email: DemoAuthor2, Role: "professor", AssignedBy: "seed"},
	}
	for _, a := range roles {
		a.UpdatedAt = time.Now().UTC()
		if err := s.PutAssignment(ctx, a); err != nil {
			return err
		}
	}

	entries := []domain.Entry{
		{
			Kind: domain.KindResearch, Status: domain.StatusPublished,
			CreatedBy: DemoAuthor, CreatedAt: day("2025-09-15"), UpdatedAt: day("2025-10-01"),
			ReviewedBy: DemoHead, ReviewedAt: at("2025-09-20"),
			PublishedBy: DemoDirector, PublishedAt: at("2025-10-01"),
			Research: &domain.Research{
				Title:           "Fairness constraints in sequence models",
				Authors:         "A. Author, D. Director",
				PublicationType: "journal_article",
				Journal:         "Journal of Applied AI",
				Year:            "2025",
				DOI:             "10.0000/demo.2025.001",
				Abstract:        "We add fairness constraints to sequence models and measure the accuracy cost on public benchmarks.",
				Keywords:        "fairness, sequence models",
				Department:      "AI & Data Science",
			},
		},
		{
			Kind: domain.KindResearch, Status: domain.StatusPendingReview,
			CreatedBy: DemoAuthor2, CreatedAt: day("2025-11-10"), UpdatedAt: day("2025-11-10"),
			Research: &domain.Research{
				Title:           "Regulating automated decisions in public services",
				Authors:         "B. Author",
				PublicationType: "conference_paper",
				Year:            "2026",
				Abstract:        "A survey of regulatory approaches to automated decision systems deployed by public administrations.",
				Keywords:        "regulation, public sector",
				Department:      "Ethics & Society",
			},
		},
		{
			Kind: domain.KindResearch, Status: domain.StatusRejected,
			CreatedBy: DemoAuthor2, CreatedAt: day("2025-08-20"), UpdatedAt: day("2025-09-01"),
			ReviewedBy: DemoHead, ReviewedAt: at("2025-09-01"),
			RejectionReason: "Insufficient empirical evidence; add case studies.",
			Research: &domain.Research{
				Title:           "Foundations of machine agency",
				Authors:         "B. Author",
				PublicationType: "book_chapter",
				Year:            "2025",
				Abstract:        "A conceptual treatment of agency in machine learning systems and what it implies for accountability.",
				Keywords:        "agency, philosophy",
				Department:      "Ethics & Society",
			},
		},
		{
			Kind: domain.KindPartnership, Status: domain.StatusApproved,
			CreatedBy: DemoHead, CreatedAt: day("2025-12-01"), UpdatedAt: day("2025-12-15"),
			ReviewedBy: DemoDirector, ReviewedAt: at("2025-12-15"),
			Partnership: &domain.Partnership{
				PartnerName:         "Example Polytechnic",
				PartnerType:         "academic",
				Country:             "Switzerland",
				StrategicObjectives: "Student exchange and joint research in responsible AI",
				StartDate:           "2026-03-01",
				ContactPerson:       "Dr. Contact",
				ContactEmail:        "contact@polytechnic.example",
				Description:         "Exchange programme with co-supervised master theses.",
			},
		},
		{
			Kind: domain.KindRanking, Status: domain.StatusPublished,
			CreatedBy: DemoDirector, CreatedAt: day("2025-03-01"), UpdatedAt: day("2025-04-01"),
			ReviewedBy: DemoHead, ReviewedAt: at("2025-03-15"),
			PublishedBy: DemoDirector, PublishedAt: at("2025-04-01"),
			Ranking: &domain.Ranking{
				RankingBody:       "National Student Guide",
				ProgramName:       "MSc Artificial Intelligence",
				Year:              "2025",
				Rank:              "3",
				PreviousRank:      "5",
				Category:          "Masters in AI",
				AccreditationType: "Level 7",
			},
		},
		{
			Kind: domain.KindRanking, Status: domain.StatusDraft,
			CreatedBy: DemoHead, CreatedAt: day("2026-01-15"), UpdatedAt: day("2026-01-15"),
			Ranking: &domain.Ranking{
				RankingBody: "World Rankings",
				ProgramName: "MSc Data Science",
				Year:        "2026",
				Rank:        "45",
				Category:    "Data Science",
			},
		},
	}
	for _, e := range entries {
		e.ID = ids.NewAt(e.CreatedAt)
		if _, err := s.Insert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
