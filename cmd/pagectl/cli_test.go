package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pagecraft/app/internal/domain/publishing"
	"pagecraft/app/internal/platform/config"
	applog "pagecraft/app/internal/platform/log"
)

// setupEnvironment opens a fresh sqlite-backed environment writing to the returned buffer.
func setupEnvironment(t *testing.T) (*environment, *bytes.Buffer) {
	t.Helper()

	cfg := config.Config{
		DBDriver:    config.DriverSQLite,
		DBPath:      filepath.Join(t.TempDir(), "pagectl.db"),
		DefaultHost: "pages.example.com",
		VisitStore:  config.VisitStoreDatabase,
	}

	out := &bytes.Buffer{}
	env, err := newEnvironment(context.Background(), cfg, applog.Discard(), out)
	if err != nil {
		t.Fatalf("newEnvironment returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := env.Close(); err != nil {
			t.Errorf("closing environment: %v", err)
		}
	})

	return env, out
}

func runCLI(t *testing.T, env *environment, args ...string) error {
	t.Helper()
	return newCLIApp(env).RunContext(context.Background(), append([]string{"pagectl"}, args...))
}

func seedPage(t *testing.T, env *environment, id, userID, slug string) {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := env.stores.Pages.Create(context.Background(), &publishing.Page{
		ID:          id,
		UserID:      userID,
		ProjectID:   "project-" + id,
		Slug:        slug,
		Title:       "Page " + id,
		HTMLContent: "<p>hello</p>",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("seeding page: %v", err)
	}
}

func TestPagesListFiltersByUser(t *testing.T) {
	t.Parallel()

	env, out := setupEnvironment(t)
	seedPage(t, env, "p1", "alice", "home")
	seedPage(t, env, "p2", "bob", "about")

	if err := runCLI(t, env, "pages", "list", "--user", "alice"); err != nil {
		t.Fatalf("pages list returned error: %v", err)
	}

	var views []pageView
	if err := json.Unmarshal(out.Bytes(), &views); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out.String())
	}
	if len(views) != 1 || views[0].ID != "p1" {
		t.Fatalf("expected only alice's page, got %+v", views)
	}
	if views[0].URL != "https://pages.example.com/home" {
		t.Fatalf("unexpected url %q", views[0].URL)
	}
}

func TestPagesDeleteRemovesPage(t *testing.T) {
	t.Parallel()

	env, _ := setupEnvironment(t)
	seedPage(t, env, "p1", "alice", "home")

	if err := runCLI(t, env, "pages", "delete", "p1"); err != nil {
		t.Fatalf("pages delete returned error: %v", err)
	}

	page, err := env.stores.Pages.GetByID(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if page != nil {
		t.Fatalf("expected page to be deleted, got %+v", page)
	}
}

func TestPagesDeleteMissingPage(t *testing.T) {
	t.Parallel()

	env, _ := setupEnvironment(t)

	err := runCLI(t, env, "pages", "delete", "ghost")
	if err == nil {
		t.Fatalf("expected error for missing page")
	}
	if !strings.Contains(err.Error(), "[not_found]") {
		t.Fatalf("expected not_found prefix, got %q", err.Error())
	}
}

func TestDomainsLifecycle(t *testing.T) {
	t.Parallel()

	env, out := setupEnvironment(t)

	if err := runCLI(t, env, "domains", "add", "--user", "alice", "Blog.Example.org"); err != nil {
		t.Fatalf("domains add returned error: %v", err)
	}

	var added domainView
	if err := json.Unmarshal(out.Bytes(), &added); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out.String())
	}
	if added.Domain != "blog.example.org" || added.Verified {
		t.Fatalf("unexpected registered domain %+v", added)
	}

	out.Reset()
	if err := runCLI(t, env, "domains", "verify", "blog.example.org"); err != nil {
		t.Fatalf("domains verify returned error: %v", err)
	}

	var verified domainView
	if err := json.Unmarshal(out.Bytes(), &verified); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out.String())
	}
	if !verified.Verified || verified.VerifiedAt == nil {
		t.Fatalf("expected verified domain, got %+v", verified)
	}

	if err := runCLI(t, env, "domains", "remove", "blog.example.org"); err != nil {
		t.Fatalf("domains remove returned error: %v", err)
	}

	domains, err := env.stores.Domains.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(domains) != 0 {
		t.Fatalf("expected empty registry, got %+v", domains)
	}
}

func TestDomainsAddRejectsPlatformHost(t *testing.T) {
	t.Parallel()

	env, _ := setupEnvironment(t)

	err := runCLI(t, env, "domains", "add", "--user", "alice", "pages.example.com")
	if err == nil || !strings.Contains(err.Error(), "[invalid]") {
		t.Fatalf("expected invalid domain error, got %v", err)
	}
}

func TestDomainsVerifyRequiresArgument(t *testing.T) {
	t.Parallel()

	env, _ := setupEnvironment(t)

	if err := runCLI(t, env, "domains", "verify"); err == nil {
		t.Fatalf("expected error without domain argument")
	}
}

func TestStatsOverviewAndPage(t *testing.T) {
	t.Parallel()

	env, out := setupEnvironment(t)
	seedPage(t, env, "p1", "alice", "home")

	err := env.stores.Visits.Record(context.Background(), publishing.Visit{
		PageID:    "p1",
		Slug:      "home",
		VisitedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("recording visit: %v", err)
	}

	if err := runCLI(t, env, "stats"); err != nil {
		t.Fatalf("stats returned error: %v", err)
	}

	var overview statsView
	if err := json.Unmarshal(out.Bytes(), &overview); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out.String())
	}
	if overview.Pages == nil || *overview.Pages != 1 || overview.VisitsTotal != 1 {
		t.Fatalf("unexpected overview %+v", overview)
	}

	out.Reset()
	if err := runCLI(t, env, "stats", "p1"); err != nil {
		t.Fatalf("stats p1 returned error: %v", err)
	}

	var page statsView
	if err := json.Unmarshal(out.Bytes(), &page); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out.String())
	}
	if page.PageID != "p1" || page.VisitsTotal != 1 || page.VisitsLast30Days != 1 {
		t.Fatalf("unexpected page stats %+v", page)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	env, out := setupEnvironment(t)

	if err := runCLI(t, env, "migrate"); err != nil {
		t.Fatalf("migrate returned error: %v", err)
	}
	if !strings.Contains(out.String(), "migrated") {
		t.Fatalf("expected migrated status, got %q", out.String())
	}
}
