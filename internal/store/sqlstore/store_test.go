package sqlstore

import (
	"context"
	"errors"
	"io/fs"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"centralis.org/internal/domain"
	"centralis.org/internal/rbac"
)

var entryRowColumns = []string{
	"id", "kind", "status", "created_by", "created_at", "updated_at",
	"reviewed_by", "reviewed_at", "published_by", "published_at", "rejection_reason", "payload",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres), mock
}

func researchRow(id, status string, ts time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(entryRowColumns).AddRow(
		id, "research", status, "alice@uni.edu", ts, ts,
		nil, nil, nil, nil, nil,
		[]byte(`{"title":"Graph sparsifiers","year":"2024"}`),
	)
}

func TestRebind(t *testing.T) {
	got := Postgres.rebind("a = ? and b = '?' and c = ?")
	if got != "a = $1 and b = '?' and c = $2" {
		t.Fatalf("rebind = %q", got)
	}
	if SQLite.rebind("a = ?") != "a = ?" {
		t.Fatal("sqlite must keep ? placeholders")
	}
}

func TestParseDialect(t *testing.T) {
	for raw, want := range map[string]Dialect{"postgres": Postgres, "pgx": Postgres, "sqlite3": SQLite, "file": SQLite} {
		got, err := ParseDialect(raw)
		if err != nil || got != want {
			t.Fatalf("ParseDialect(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatal("expected error for mysql")
	}
	if Postgres.DriverName() != "pgx" || SQLite.DriverName() != "sqlite3" {
		t.Fatal("unexpected driver names")
	}
}

func TestStatusClauseCoversLegacySpellings(t *testing.T) {
	clause, args := statusClause(domain.StatusPendingReview)
	if clause != "lower(trim(status)) in (?, ?)" || len(args) != 2 || args[1] != "in_review" {
		t.Fatalf("pending clause = %q %v", clause, args)
	}
	clause, args = statusClause(domain.StatusDraft)
	if clause != "lower(trim(status)) not in (?, ?, ?, ?, ?)" || len(args) != 5 {
		t.Fatalf("draft clause = %q %v", clause, args)
	}
	clause, args = statusClause(domain.StatusPublished)
	if clause != "lower(trim(status)) = ?" || args[0] != "published" {
		t.Fatalf("published clause = %q %v", clause, args)
	}
}

func TestFindDecodesRow(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("from entries where id = $1")).
		WithArgs("01J").
		WillReturnRows(researchRow("01J", "in_review", ts))

	e, err := s.Find(context.Background(), "01J")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if e.Status != domain.StatusPendingReview {
		t.Fatalf("legacy status not normalized: %q", e.Status)
	}
	if e.Research == nil || e.Research.Title != "Graph sparsifiers" {
		t.Fatalf("payload = %+v", e.Research)
	}
	if e.ReviewedAt != nil || e.ReviewedBy != "" {
		t.Fatalf("unexpected review fields: %+v", e)
	}
}

func TestFindNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("from entries where id").WillReturnRows(sqlmock.NewRows(entryRowColumns))

	if _, err := s.Find(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestFindAllBuildsFilter(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("where kind = $1 and lower(trim(status)) = $2 and lower(created_by) = $3 order by created_at desc, id desc")).
		WithArgs("research", "published", "alice@uni.edu").
		WillReturnRows(researchRow("01A", "published", ts))

	list, err := s.FindAll(context.Background(), domain.Filter{
		Kind:      domain.KindResearch,
		Status:    domain.StatusPublished,
		CreatedBy: "Alice@Uni.edu",
	})
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(list) != 1 || list[0].ID != "01A" {
		t.Fatalf("list = %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertDuplicateIsConflict(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("insert into entries").WillReturnError(&pgconn.PgError{Code: "23505"})

	e := domain.Entry{
		ID:        "01J",
		Kind:      domain.KindResearch,
		Status:    domain.StatusDraft,
		CreatedBy: "alice@uni.edu",
		Research:  &domain.Research{Title: "x"},
	}
	if _, err := s.Insert(context.Background(), e); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestInsertNormalizesStatus(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("insert into entries").
		WithArgs("01J", "research", "draft", "alice@uni.edu",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	got, err := s.Insert(context.Background(), domain.Entry{
		ID:        "01J",
		Kind:      domain.KindResearch,
		Status:    "bogus",
		CreatedBy: "alice@uni.edu",
		Research:  &domain.Research{Title: "x"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got.Status != domain.StatusDraft {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestConditionalUpdateApplies(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	reviewer := "bob@uni.edu"

	mock.ExpectExec(regexp.QuoteMeta("update entries set status = $1, updated_at = $2, reviewed_by = $3, reviewed_at = $4 where id = $5 and lower(trim(status)) in ($6, $7)")).
		WithArgs("approved", now, reviewer, now, "01J", "pending_review", "in_review").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("from entries where id").
		WillReturnRows(researchRow("01J", "approved", now))

	got, err := s.ConditionalUpdate(context.Background(), "01J", domain.StatusPendingReview, domain.Patch{
		Status:     domain.StatusApproved,
		UpdatedAt:  now,
		ReviewedBy: &reviewer,
		ReviewedAt: &now,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != domain.StatusApproved {
		t.Fatalf("status = %q", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConditionalUpdateStaleIsConflict(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectExec("update entries set status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("from entries where id").WillReturnRows(researchRow("01J", "approved", now))

	_, err := s.ConditionalUpdate(context.Background(), "01J", domain.StatusPendingReview, domain.Patch{
		Status: domain.StatusApproved, UpdatedAt: now,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestConditionalUpdateMissingIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("update entries set status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("from entries where id").WillReturnRows(sqlmock.NewRows(entryRowColumns))

	_, err := s.ConditionalUpdate(context.Background(), "gone", domain.StatusDraft, domain.Patch{
		Status: domain.StatusPendingReview, UpdatedAt: time.Now(),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestAssignments(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("from user_roles where email = $1")).
		WithArgs("bob@uni.edu").
		WillReturnRows(sqlmock.NewRows([]string{"email", "role", "assigned_by", "updated_at"}).
			AddRow("bob@uni.edu", "reviewer", nil, ts))
	a, found, err := s.GetAssignment(ctx, " Bob@Uni.edu ")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if a.Role != "reviewer" || a.AssignedBy != "" {
		t.Fatalf("assignment = %+v", a)
	}

	mock.ExpectQuery("from user_roles where email").
		WillReturnRows(sqlmock.NewRows([]string{"email", "role", "assigned_by", "updated_at"}))
	if _, found, err := s.GetAssignment(ctx, "nobody@uni.edu"); err != nil || found {
		t.Fatalf("missing: found=%v err=%v", found, err)
	}

	mock.ExpectExec(regexp.QuoteMeta("on conflict (email) do update")).
		WithArgs("dana@uni.edu", "admin", "root@uni.edu", ts).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := s.PutAssignment(ctx, rbac.Assignment{Email: "Dana@uni.edu", Role: "admin", AssignedBy: "root@uni.edu", UpdatedAt: ts}); err != nil {
		t.Fatalf("put: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("delete from user_roles where email = $1")).
		WithArgs("ghost@uni.edu").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.DeleteAssignment(ctx, "ghost@uni.edu"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete missing: %v", err)
	}

	mock.ExpectQuery("from user_roles order by email").
		WillReturnRows(sqlmock.NewRows([]string{"email", "role", "assigned_by", "updated_at"}).
			AddRow("a@uni.edu", "author", "x@uni.edu", ts).
			AddRow("b@uni.edu", "admin", nil, ts))
	list, err := s.ListAssignments(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %v, %v", list, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, d := range []Dialect{Postgres, SQLite} {
		fsys, err := Migrations(d)
		if err != nil {
			t.Fatalf("%s: %v", d, err)
		}
		ups, err := fs.Glob(fsys, "*.up.sql")
		if err != nil {
			t.Fatalf("%s glob: %v", d, err)
		}
		if len(ups) != 2 {
			t.Fatalf("%s: up migrations = %v", d, ups)
		}
		for _, up := range ups {
			down := up[:len(up)-len(".up.sql")] + ".down.sql"
			if _, err := fs.Stat(fsys, down); err != nil {
				t.Fatalf("%s: missing %s", d, down)
			}
		}
	}
}
