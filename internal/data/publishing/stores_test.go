package publishing

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	domain "pagecraft/app/internal/domain/publishing"
)

func TestVisitStoreRecordsAndCounts(t *testing.T) {
	t.Parallel()

	store, err := NewVisitStore(openTestDB(t), silentLogger())
	if err != nil {
		t.Fatalf("NewVisitStore returned error: %v", err)
	}
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	visits := []domain.Visit{
		{PageID: "p1", Slug: "a", VisitedAt: now.Add(-time.Hour)},
		{PageID: "p1", Slug: "a", VisitedAt: now.Add(-45 * 24 * time.Hour)},
		{PageID: "p2", Slug: "b", VisitedAt: now.Add(-2 * time.Hour)},
		{Slug: "unknown", VisitedAt: now},
	}
	for _, visit := range visits {
		if err := store.Record(ctx, visit); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	since := now.Add(-30 * 24 * time.Hour)

	page, err := store.CountVisits(ctx, "p1", since)
	if err != nil {
		t.Fatalf("CountVisits returned error: %v", err)
	}
	if page.Total != 2 || page.Last30Days != 1 {
		t.Fatalf("unexpected page counts %+v", page)
	}

	all, err := store.CountVisits(ctx, "", since)
	if err != nil {
		t.Fatalf("CountVisits returned error: %v", err)
	}
	if all.Total != 3 || all.Last30Days != 2 {
		t.Fatalf("unexpected global counts %+v", all)
	}
}

func TestVisitStoreTruncatesOnRuneBoundaries(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store, err := NewVisitStore(db, silentLogger())
	if err != nil {
		t.Fatalf("NewVisitStore returned error: %v", err)
	}

	// "é" is two bytes, so an odd limit lands inside a rune.
	visit := domain.Visit{
		PageID:    "p1",
		Slug:      "a",
		Host:      strings.Repeat("h", maxHostLength+10),
		Referrer:  "x" + strings.Repeat("é", maxReferrerLength),
		UserAgent: "x" + strings.Repeat("é", maxUserAgentLength),
		IPAddress: "x" + strings.Repeat("é", maxIPAddressLength),
		VisitedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Record(context.Background(), visit); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	var record VisitRecord
	if err := db.First(&record, "page_id = ?", "p1").Error; err != nil {
		t.Fatalf("loading visit: %v", err)
	}

	fields := map[string]struct {
		value string
		limit int
	}{
		"host":       {record.Host, maxHostLength},
		"referrer":   {record.Referrer, maxReferrerLength},
		"user_agent": {record.UserAgent, maxUserAgentLength},
		"ip_address": {record.IPAddress, maxIPAddressLength},
	}
	for name, field := range fields {
		if !utf8.ValidString(field.value) {
			t.Errorf("%s: stored value is not valid UTF-8", name)
		}
		if len(field.value) > field.limit {
			t.Errorf("%s: stored %d bytes, limit %d", name, len(field.value), field.limit)
		}
	}
	if len(record.Referrer) != maxReferrerLength-1 {
		t.Errorf("expected the split rune to be dropped, got %d bytes", len(record.Referrer))
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		limit    int
		expected string
	}{
		{input: "short", limit: 10, expected: "short"},
		{input: "abcdef", limit: 3, expected: "abc"},
		{input: "aé", limit: 2, expected: "a"},
		{input: "a\xffb", limit: 10, expected: "ab"},
	}

	for _, tc := range cases {
		if got := truncate(tc.input, tc.limit); got != tc.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.input, tc.limit, got, tc.expected)
		}
	}
}

func TestDomainRegistryLifecycle(t *testing.T) {
	t.Parallel()

	registry, err := NewDomainRegistry(openTestDB(t), silentLogger())
	if err != nil {
		t.Fatalf("NewDomainRegistry returned error: %v", err)
	}
	registry.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	missing, err := registry.Lookup(ctx, "a.com")
	if err != nil || missing != nil {
		t.Fatalf("expected miss, got %+v, %v", missing, err)
	}

	registered, err := registry.Register(ctx, "a.com", "u")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if registered.Verified {
		t.Fatalf("expected new domain to be unverified")
	}

	if _, err := registry.Register(ctx, "a.com", "other"); !eris.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate registration, got %v", err)
	}

	verified, err := registry.Verify(ctx, "a.com")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !verified.Verified || verified.VerifiedAt == nil {
		t.Fatalf("expected verified domain, got %+v", verified)
	}

	looked, err := registry.Lookup(ctx, "a.com")
	if err != nil || looked == nil || !looked.Verified || looked.UserID != "u" {
		t.Fatalf("unexpected lookup %+v, %v", looked, err)
	}

	if _, err := registry.Verify(ctx, "b.com"); !eris.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound verifying unknown domain, got %v", err)
	}

	list, err := registry.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List returned %+v, %v", list, err)
	}

	if err := registry.Remove(ctx, "a.com"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if err := registry.Remove(ctx, "a.com"); !eris.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestProjectStoreTracksPublishedPage(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store, err := NewProjectStore(db)
	if err != nil {
		t.Fatalf("NewProjectStore returned error: %v", err)
	}
	ctx := context.Background()

	if err := db.Create(&ProjectRecord{ID: "proj", UserID: "u"}).Error; err != nil {
		t.Fatalf("seeding project failed: %v", err)
	}

	if err := store.MarkPublished(ctx, "u", "proj", "page-1"); err != nil {
		t.Fatalf("MarkPublished returned error: %v", err)
	}
	if got, _ := store.PublishedPageID(ctx, "proj"); got != "page-1" {
		t.Fatalf("expected page-1, got %q", got)
	}

	if err := store.MarkPublished(ctx, "intruder", "proj", "page-2"); err == nil {
		t.Fatalf("expected error marking another user's project")
	}

	if err := store.ClearPublished(ctx, "u", "proj", "stale-page"); err != nil {
		t.Fatalf("ClearPublished returned error: %v", err)
	}
	if got, _ := store.PublishedPageID(ctx, "proj"); got != "page-1" {
		t.Fatalf("expected stale clear to be ignored, got %q", got)
	}

	if err := store.ClearPublished(ctx, "u", "proj", "page-1"); err != nil {
		t.Fatalf("ClearPublished returned error: %v", err)
	}
	if got, _ := store.PublishedPageID(ctx, "proj"); got != "" {
		t.Fatalf("expected reference to be cleared, got %q", got)
	}
}
