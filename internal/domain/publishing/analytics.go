package publishing

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagecraft/app/internal/platform/besteffort"
	applog "pagecraft/app/internal/platform/log"
)

const recentWindow = 30 * 24 * time.Hour

// Overview summarises platform usage for the admin dashboard.
type Overview struct {
	Pages  int64
	Visits VisitCounts
}

// AnalyticsOptions configures Analytics.
type AnalyticsOptions struct {
	Repository Repository
	Counter    VisitCounter
	Recorder   VisitRecorder
	Hosts      *HostPolicy
	Dispatcher *besteffort.Dispatcher
	Logger     *logrus.Logger
	Now        func() time.Time
}

// Analytics reads aggregate visit counts and accepts externally reported visits.
type Analytics struct {
	repo       Repository
	counter    VisitCounter
	recorder   VisitRecorder
	hosts      *HostPolicy
	dispatcher *besteffort.Dispatcher
	logger     *logrus.Logger
	now        func() time.Time
}

// NewAnalytics wires the analytics service.
func NewAnalytics(opts AnalyticsOptions) (*Analytics, error) {
	if opts.Repository == nil {
		return nil, eris.New("page repository is required")
	}
	if opts.Counter == nil {
		return nil, eris.New("visit counter is required")
	}
	if opts.Hosts == nil {
		return nil, eris.New("host policy is required")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Analytics{
		repo:       opts.Repository,
		counter:    opts.Counter,
		recorder:   opts.Recorder,
		hosts:      opts.Hosts,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		now:        now,
	}, nil
}

// PageStats returns visit counts for one of the user's pages.
func (a *Analytics) PageStats(ctx context.Context, userID, pageID string) (VisitCounts, error) {
	page, err := a.repo.GetByID(ctx, strings.TrimSpace(pageID))
	if err != nil {
		a.logError(logrus.Fields{"page_id": pageID}, err, "loading page for stats")
		return VisitCounts{}, eris.Wrapf(err, "loading page %s", pageID)
	}
	if page == nil || page.UserID != strings.TrimSpace(userID) {
		return VisitCounts{}, eris.Wrapf(ErrNotFound, "page %s", pageID)
	}

	counts, err := a.counter.CountVisits(ctx, page.ID, a.since())
	if err != nil {
		a.logError(logrus.Fields{"page_id": page.ID}, err, "counting page visits")
		return VisitCounts{}, eris.Wrapf(err, "counting visits for page %s", page.ID)
	}

	return counts, nil
}

// Overview returns totals across every page.
func (a *Analytics) Overview(ctx context.Context) (Overview, error) {
	pages, err := a.repo.CountPages(ctx)
	if err != nil {
		a.logError(nil, err, "counting pages")
		return Overview{}, eris.Wrap(err, "counting pages")
	}

	visits, err := a.counter.CountVisits(ctx, "", a.since())
	if err != nil {
		a.logError(nil, err, "counting visits")
		return Overview{}, eris.Wrap(err, "counting visits")
	}

	return Overview{Pages: pages, Visits: visits}, nil
}

// RecordVisit acknowledges an externally reported visit and logs it in the background.
// Only the slug format is checked synchronously.
func (a *Analytics) RecordVisit(ctx context.Context, visit Visit) error {
	slug := strings.TrimSpace(visit.Slug)
	if slug == "" || !slugPattern.MatchString(slug) {
		return eris.Wrapf(ErrInvalidSlug, "visit slug %q", slug)
	}

	visit.Slug = slug
	visit.Host = NormalizeHost(visit.Host)
	if visit.VisitedAt.IsZero() {
		visit.VisitedAt = a.now().UTC()
	}

	if a.dispatcher == nil || a.recorder == nil {
		return nil
	}

	customDomain := ""
	if !a.hosts.IsDefault(visit.Host) {
		customDomain = visit.Host
	}

	a.dispatcher.Go(ctx, "visit.record", logrus.Fields{"slug": slug, "host": visit.Host}, func(taskCtx context.Context) error {
		if visit.PageID == "" {
			page, err := a.repo.FindForHost(taskCtx, customDomain, slug)
			if err != nil {
				return eris.Wrap(err, "resolving visit page")
			}
			if page != nil {
				visit.PageID = page.ID
			}
		}
		return a.recorder.Record(taskCtx, visit)
	})

	return nil
}

func (a *Analytics) since() time.Time {
	return a.now().UTC().Add(-recentWindow)
}

func (a *Analytics) logError(fields logrus.Fields, err error, message string) {
	applog.ComponentError(a.logger, "publishing.analytics", fields, err, message)
}
