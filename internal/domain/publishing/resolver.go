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

// ResolverOptions configures a Resolver. Visits and Dispatcher are optional; without them
// no visit is recorded.
type ResolverOptions struct {
	Repository Repository
	Hosts      *HostPolicy
	Visits     VisitRecorder
	Dispatcher *besteffort.Dispatcher
	Logger     *logrus.Logger
	Now        func() time.Time
}

// Resolver maps a public (host, slug) request to the single page to serve.
type Resolver struct {
	repo       Repository
	hosts      *HostPolicy
	visits     VisitRecorder
	dispatcher *besteffort.Dispatcher
	logger     *logrus.Logger
	now        func() time.Time
}

// NewResolver wires the resolver with its dependencies.
func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Repository == nil {
		return nil, eris.New("page repository is required")
	}
	if opts.Hosts == nil {
		return nil, eris.New("host policy is required")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Resolver{
		repo:       opts.Repository,
		hosts:      opts.Hosts,
		visits:     opts.Visits,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		now:        now,
	}, nil
}

// Resolve returns the page for the request with normalized HTML. A miss returns an error
// wrapping ErrNotFound; any other error means the store failed.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (*ResolvedPage, error) {
	slug := strings.TrimSpace(req.Slug)
	host := NormalizeHost(req.Host)

	// Nothing unpublishable can be stored, so skip the lookup.
	if slug == "" || !slugPattern.MatchString(slug) {
		return nil, eris.Wrapf(ErrNotFound, "slug %q on host %s", slug, host)
	}

	customDomain := ""
	if !r.hosts.IsDefault(host) {
		customDomain = host
	}

	page, err := r.repo.FindForHost(ctx, customDomain, slug)
	if err != nil {
		r.logError(logrus.Fields{"slug": slug, "host": host, "operation": "resolve"}, err, "looking up published page")
		return nil, eris.Wrapf(err, "resolving slug %s on host %s", slug, host)
	}

	if page == nil {
		return nil, eris.Wrapf(ErrNotFound, "slug %q on host %s", slug, host)
	}

	recordVisitAsync(ctx, r.dispatcher, r.visits, Visit{
		PageID:    page.ID,
		Slug:      page.Slug,
		Host:      host,
		Referrer:  req.Referrer,
		UserAgent: req.UserAgent,
		IPAddress: req.ClientIP,
		VisitedAt: r.now().UTC(),
	})

	return &ResolvedPage{
		Page: *page,
		HTML: NormalizeHTML(page.HTMLContent),
	}, nil
}

func (r *Resolver) logError(fields logrus.Fields, err error, message string) {
	applog.ComponentError(r.logger, "publishing.resolver", fields, err, message)
}

func recordVisitAsync(ctx context.Context, dispatcher *besteffort.Dispatcher, recorder VisitRecorder, visit Visit) {
	if dispatcher == nil || recorder == nil {
		return
	}

	fields := logrus.Fields{"slug": visit.Slug, "host": visit.Host}
	if visit.PageID != "" {
		fields["page_id"] = visit.PageID
	}

	dispatcher.Go(ctx, "visit.record", fields, func(taskCtx context.Context) error {
		return recorder.Record(taskCtx, visit)
	})
}
