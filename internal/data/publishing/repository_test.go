package publishing

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pagecraft/app/internal/data/database"
	domain "pagecraft/app/internal/domain/publishing"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "publishing.db")})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := database.Close(db); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	if err := db.AutoMigrate(&PageRecord{}, &VisitRecord{}, &DomainRecord{}, &ProjectRecord{}); err != nil {
		t.Fatalf("AutoMigrate returned error: %v", err)
	}

	return db
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestPageRepository(t *testing.T) *PageRepository {
	t.Helper()

	repo, err := NewPageRepository(openTestDB(t), silentLogger())
	if err != nil {
		t.Fatalf("NewPageRepository returned error: %v", err)
	}
	return repo
}

func samplePage(id, userID, projectID, slug, customDomain string) *domain.Page {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Page{
		ID:           id,
		Slug:         slug,
		ProjectID:    projectID,
		UserID:       userID,
		Title:        "Title " + slug,
		HTMLContent:  "<p>" + slug + "</p>",
		CustomDomain: customDomain,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNewPageRepositoryRequiresDB(t *testing.T) {
	t.Parallel()

	if _, err := NewPageRepository(nil, nil); err == nil {
		t.Fatalf("expected error without database")
	}
}

func TestPageRepositoryCreateAndFind(t *testing.T) {
	t.Parallel()

	repo := newTestPageRepository(t)
	ctx := context.Background()

	page := samplePage("p1", "u", "proj", "abc", "")
	if err := repo.Create(ctx, page); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	found, err := repo.FindForHost(ctx, "", "abc")
	if err != nil {
		t.Fatalf("FindForHost returned error: %v", err)
	}
	if found == nil || found.ID != "p1" || found.HTMLContent != "<p>abc</p>" {
		t.Fatalf("unexpected page %+v", found)
	}

	missing, err := repo.FindForHost(ctx, "a.com", "abc")
	if err != nil {
		t.Fatalf("FindForHost returned error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected custom domain namespace to miss, got %+v", missing)
	}

	byID, err := repo.GetByID(ctx, "p1")
	if err != nil || byID == nil || byID.Slug != "abc" {
		t.Fatalf("GetByID returned %+v, %v", byID, err)
	}

	none, err := repo.GetByID(ctx, "unknown")
	if err != nil || none != nil {
		t.Fatalf("expected nil for unknown id, got %+v, %v", none, err)
	}
}

func TestPageRepositoryUniqueIndexesReportConflict(t *testing.T) {
	t.Parallel()

	repo := newTestPageRepository(t)
	ctx := context.Background()

	if err := repo.Create(ctx, samplePage("p1", "u", "proj1", "x", "a.com")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	sameUser := samplePage("p2", "u", "proj2", "x", "b.com")
	if err := repo.Create(ctx, sameUser); !eris.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate user slug, got %v", err)
	}

	sameHost := samplePage("p3", "other", "proj3", "x", "a.com")
	if err := repo.Create(ctx, sameHost); !eris.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate host slug, got %v", err)
	}

	otherHost := samplePage("p4", "other", "proj4", "x", "")
	if err := repo.Create(ctx, otherHost); err != nil {
		t.Fatalf("expected same slug in another namespace to succeed, got %v", err)
	}
}

func TestPageRepositoryUpdateAndDelete(t *testing.T) {
	t.Parallel()

	repo := newTestPageRepository(t)
	ctx := context.Background()

	page := samplePage("p1", "u", "proj", "abc", "")
	if err := repo.Create(ctx, page); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	page.HTMLContent = "<p>second</p>"
	page.Title = "Second"
	page.UpdatedAt = page.UpdatedAt.Add(time.Hour)
	if err := repo.Update(ctx, page); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	stored, err := repo.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if stored.HTMLContent != "<p>second</p>" || stored.Title != "Second" || !stored.UpdatedAt.Equal(page.UpdatedAt) {
		t.Fatalf("unexpected stored page %+v", stored)
	}
	if !stored.CreatedAt.Equal(page.CreatedAt) {
		t.Fatalf("expected createdAt to be preserved")
	}

	if err := repo.Update(ctx, samplePage("ghost", "u", "proj", "ghost", "")); !eris.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing page, got %v", err)
	}

	if err := repo.Delete(ctx, "p1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := repo.Delete(ctx, "p1"); !eris.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	if err := repo.Create(ctx, samplePage("p2", "u", "proj", "abc", "")); err != nil {
		t.Fatalf("expected slug to be free after delete, got %v", err)
	}
}

func TestPageRepositoryListings(t *testing.T) {
	t.Parallel()

	repo := newTestPageRepository(t)
	ctx := context.Background()

	for _, page := range []*domain.Page{
		samplePage("p1", "u", "proj1", "zeta", ""),
		samplePage("p2", "u", "proj2", "alpha", "a.com"),
		samplePage("p3", "v", "proj3", "beta", ""),
	} {
		if err := repo.Create(ctx, page); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	pages, err := repo.ListByUser(ctx, "u")
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(pages) != 2 || pages[0].Slug != "alpha" || pages[1].Slug != "zeta" {
		t.Fatalf("unexpected pages %+v", pages)
	}

	bySlug, err := repo.ListByUserSlug(ctx, "u", "zeta")
	if err != nil || len(bySlug) != 1 || bySlug[0].ID != "p1" {
		t.Fatalf("ListByUserSlug returned %+v, %v", bySlug, err)
	}

	all, err := repo.ListAll(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListAll returned %d pages, %v", len(all), err)
	}

	count, err := repo.CountPages(ctx)
	if err != nil || count != 3 {
		t.Fatalf("CountPages returned %d, %v", count, err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm duplicated key", err: eris.Wrap(gorm.ErrDuplicatedKey, "insert"), want: true},
		{name: "postgres unique", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "postgres other", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: published_pages.slug"), want: true},
		{name: "unrelated", err: errors.New("disk I/O error"), want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("isUniqueViolation(%v) = %t, want %t", tc.err, got, tc.want)
			}
		})
	}
}
