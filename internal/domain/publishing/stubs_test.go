package publishing

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

type stubRepository struct {
	mu    sync.Mutex
	pages map[string]Page
	err   error
	calls int
}

var _ Repository = (*stubRepository)(nil)

func newStubRepository() *stubRepository {
	return &stubRepository{pages: map[string]Page{}}
}

func (s *stubRepository) FindForHost(_ context.Context, customDomain, slug string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	for _, page := range s.pages {
		if page.Slug == slug && page.CustomDomain == customDomain {
			found := page
			return &found, nil
		}
	}
	return nil, nil
}

func (s *stubRepository) ListByUserSlug(_ context.Context, userID, slug string) ([]Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []Page
	for _, page := range s.pages {
		if page.UserID == userID && page.Slug == slug {
			out = append(out, page)
		}
	}
	return out, nil
}

func (s *stubRepository) ListByUser(_ context.Context, userID string) ([]Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var out []Page
	for _, page := range s.pages {
		if page.UserID == userID {
			out = append(out, page)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *stubRepository) GetByID(_ context.Context, id string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	page, ok := s.pages[id]
	if !ok {
		return nil, nil
	}
	return &page, nil
}

func (s *stubRepository) Create(_ context.Context, page *Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.checkUnique(*page); err != nil {
		return err
	}
	s.pages[page.ID] = *page
	return nil
}

func (s *stubRepository) Update(_ context.Context, page *Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.pages[page.ID]; !ok {
		return eris.Wrapf(ErrNotFound, "page %s", page.ID)
	}
	if err := s.checkUnique(*page); err != nil {
		return err
	}
	s.pages[page.ID] = *page
	return nil
}

func (s *stubRepository) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.pages[id]; !ok {
		return eris.Wrapf(ErrNotFound, "page %s", id)
	}
	delete(s.pages, id)
	return nil
}

func (s *stubRepository) CountPages(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.pages)), nil
}

// checkUnique mirrors the store's unique indexes.
func (s *stubRepository) checkUnique(candidate Page) error {
	for id, page := range s.pages {
		if id == candidate.ID {
			continue
		}
		if page.UserID == candidate.UserID && page.Slug == candidate.Slug {
			return eris.Wrap(ErrConflict, "unique user slug")
		}
		if page.CustomDomain == candidate.CustomDomain && page.Slug == candidate.Slug {
			return eris.Wrap(ErrConflict, "unique host slug")
		}
	}
	return nil
}

func (s *stubRepository) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubRepository) get(id string) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[id]
	if !ok {
		return nil
	}
	return &page
}

// conflictingRepository hides existing rows from the pre-check to simulate a lost race.
type conflictingRepository struct {
	*stubRepository
}

func (c conflictingRepository) ListByUserSlug(context.Context, string, string) ([]Page, error) {
	return nil, nil
}

type stubRecorder struct {
	mu     sync.Mutex
	visits []Visit
	err    error
}

var _ VisitRecorder = (*stubRecorder)(nil)

func (s *stubRecorder) Record(_ context.Context, visit Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.visits = append(s.visits, visit)
	return nil
}

func (s *stubRecorder) recorded() []Visit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Visit(nil), s.visits...)
}

type stubCounter struct {
	counts    map[string]VisitCounts
	lastSince time.Time
	err       error
}

var _ VisitCounter = (*stubCounter)(nil)

func (s *stubCounter) CountVisits(_ context.Context, pageID string, since time.Time) (VisitCounts, error) {
	s.lastSince = since
	if s.err != nil {
		return VisitCounts{}, s.err
	}
	return s.counts[pageID], nil
}

type stubDomains struct {
	domains map[string]Domain
	err     error
}

var _ DomainRegistry = (*stubDomains)(nil)

func (s *stubDomains) Lookup(_ context.Context, name string) (*Domain, error) {
	if s.err != nil {
		return nil, s.err
	}
	domain, ok := s.domains[name]
	if !ok {
		return nil, nil
	}
	return &domain, nil
}

type projectEvent struct {
	action    string
	userID    string
	projectID string
	pageID    string
}

type stubProjects struct {
	mu     sync.Mutex
	events []projectEvent
	err    error
}

var _ ProjectNotifier = (*stubProjects)(nil)

func (s *stubProjects) MarkPublished(_ context.Context, userID, projectID, pageID string) error {
	return s.add("mark", userID, projectID, pageID)
}

func (s *stubProjects) ClearPublished(_ context.Context, userID, projectID, pageID string) error {
	return s.add("clear", userID, projectID, pageID)
}

func (s *stubProjects) add(action, userID, projectID, pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, projectEvent{action, userID, projectID, pageID})
	return s.err
}

func (s *stubProjects) recorded() []projectEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]projectEvent(nil), s.events...)
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func mustHostPolicy(defaultHost string, aliases ...string) *HostPolicy {
	policy, err := NewHostPolicy(defaultHost, aliases...)
	if err != nil {
		panic(err)
	}
	return policy
}

type errStub string

func (e errStub) Error() string {
	return string(e)
}
