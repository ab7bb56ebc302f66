package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"centralis.org/internal/domain"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "centralis.db")+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := New(db, SQLite)
	m, err := s.Migrator()
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if _, err := m.Up(context.Background()); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	return s
}

func insertRawStatus(t *testing.T, s *Store, id, status string) {
	t.Helper()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := s.DB().Exec(`insert into entries (id, kind, status, created_by, created_at, updated_at, payload)
		values (?, 'research', ?, 'alice@uni.edu', ?, ?, '{"title":"Graph sparsifiers","year":"2024"}')`,
		id, status, now, now)
	if err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func statusByID(list []domain.Entry) map[string]domain.Status {
	out := make(map[string]domain.Status, len(list))
	for _, e := range list {
		out[e.ID] = e.Status
	}
	return out
}

func TestSQLiteStatusSpellingsAgreeAcrossReadsAndWrites(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	insertRawStatus(t, s, "e1", "Published")
	insertRawStatus(t, s, "e2", " pending_review")
	insertRawStatus(t, s, "e3", "in_review")
	insertRawStatus(t, s, "e4", "archived")

	got, err := s.Find(ctx, "e1")
	if err != nil || got.Status != domain.StatusPublished {
		t.Fatalf("find e1 = %q, %v", got.Status, err)
	}

	published, err := s.FindAll(ctx, domain.Filter{Status: domain.StatusPublished})
	if err != nil {
		t.Fatalf("find published: %v", err)
	}
	if st := statusByID(published); len(st) != 1 || st["e1"] != domain.StatusPublished {
		t.Fatalf("published = %v", st)
	}

	pending, err := s.FindAll(ctx, domain.Filter{Status: domain.StatusPendingReview})
	if err != nil {
		t.Fatalf("find pending: %v", err)
	}
	if st := statusByID(pending); len(st) != 2 || st["e2"] != domain.StatusPendingReview || st["e3"] != domain.StatusPendingReview {
		t.Fatalf("pending = %v", st)
	}

	drafts, err := s.FindAll(ctx, domain.Filter{Status: domain.StatusDraft})
	if err != nil {
		t.Fatalf("find drafts: %v", err)
	}
	for id, status := range statusByID(drafts) {
		if status != domain.StatusDraft {
			t.Fatalf("draft filter returned %s as %q", id, status)
		}
	}
	if st := statusByID(drafts); len(st) != 1 || st["e4"] != domain.StatusDraft {
		t.Fatalf("drafts = %v", st)
	}

	now := time.Now().UTC()
	reverted, err := s.ConditionalUpdate(ctx, "e1", domain.StatusPublished, domain.Patch{Status: domain.StatusDraft, UpdatedAt: now})
	if err != nil {
		t.Fatalf("update mixed-case row: %v", err)
	}
	if reverted.Status != domain.StatusDraft {
		t.Fatalf("after update = %q", reverted.Status)
	}

	approved, err := s.ConditionalUpdate(ctx, "e2", domain.StatusPendingReview, domain.Patch{Status: domain.StatusApproved, UpdatedAt: now})
	if err != nil || approved.Status != domain.StatusApproved {
		t.Fatalf("update padded row = %q, %v", approved.Status, err)
	}
}

func TestSQLiteConcurrentConditionalUpdateHasOneWinner(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	insertRawStatus(t, s, "e1", "draft")

	const attempts = 2
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = s.ConditionalUpdate(ctx, "e1", domain.StatusDraft, domain.Patch{
				Status:    domain.StatusPendingReview,
				UpdatedAt: time.Now().UTC(),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("wins=%d conflicts=%d", wins, conflicts)
	}

	got, err := s.Find(ctx, "e1")
	if err != nil || got.Status != domain.StatusPendingReview {
		t.Fatalf("final status = %q, %v", got.Status, err)
	}
}
