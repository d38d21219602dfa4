package publishing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagecraft/app/internal/platform/besteffort"
	applog "pagecraft/app/internal/platform/log"
)

// WriterOptions configures a Writer. Domains, Projects and Dispatcher are optional.
type WriterOptions struct {
	Repository Repository
	Hosts      *HostPolicy
	Domains    DomainRegistry
	Projects   ProjectNotifier
	Dispatcher *besteffort.Dispatcher
	Logger     *logrus.Logger
	NewID      func() string
	Now        func() time.Time
}

// Writer decides between create, update-in-place and conflict for publish requests.
type Writer struct {
	repo       Repository
	hosts      *HostPolicy
	domains    DomainRegistry
	projects   ProjectNotifier
	dispatcher *besteffort.Dispatcher
	logger     *logrus.Logger
	newID      func() string
	now        func() time.Time
}

// NewWriter wires the writer with its dependencies.
func NewWriter(opts WriterOptions) (*Writer, error) {
	if opts.Repository == nil {
		return nil, eris.New("page repository is required")
	}
	if opts.Hosts == nil {
		return nil, eris.New("host policy is required")
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Writer{
		repo:       opts.Repository,
		hosts:      opts.Hosts,
		domains:    opts.Domains,
		projects:   opts.Projects,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		newID:      newID,
		now:        now,
	}, nil
}

// Publish creates or republishes the project's page under the requested slug.
//
// A slug already held by a different project of the same user, or by anyone in the
// same host namespace, fails with ErrConflict. Publishing a project under a new slug creates
// a new page; the old one remains until Unpublish. A custom domain that is not registered to
// the user and verified is dropped, and the page is published on the default host.
func (w *Writer) Publish(ctx context.Context, input PublishInput) (*PublishResult, error) {
	slug, err := ValidateSlug(input.Slug)
	if err != nil {
		return nil, err
	}

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, eris.Wrap(ErrInvalidInput, "user id is required")
	}

	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		return nil, eris.Wrap(ErrInvalidInput, "project id is required")
	}

	customDomain, err := w.hosts.NormalizeDomain(input.CustomDomain)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"slug": slug, "user_id": userID, "project_id": projectID, "operation": "publish"}
	if customDomain != "" {
		fields["custom_domain"] = customDomain
	}

	verified, err := w.domainVerified(ctx, userID, customDomain)
	if err != nil {
		if eris.Is(err, ErrInvalidDomain) {
			return nil, err
		}
		w.logError(fields, err, "looking up custom domain")
		return nil, eris.Wrapf(err, "looking up custom domain %s", customDomain)
	}

	// Pages are only bound to a domain the user has proven; otherwise they live on the
	// default host, where the returned URL resolves.
	if !verified {
		customDomain = ""
	}

	existing, err := w.repo.ListByUserSlug(ctx, userID, slug)
	if err != nil {
		w.logError(fields, err, "checking slug ownership")
		return nil, eris.Wrapf(err, "checking slug ownership: %s", slug)
	}

	var current *Page
	for i := range existing {
		if existing[i].ProjectID != projectID {
			return nil, eris.Wrapf(ErrConflict, "slug %s is owned by a different project of yours", slug)
		}
		if current == nil {
			current = &existing[i]
		}
	}

	now := w.now().UTC()
	title := ExtractTitle(input.HTML)

	var page Page
	isUpdate := current != nil

	if isUpdate {
		page = *current
		page.HTMLContent = input.HTML
		page.Title = title
		page.CustomDomain = customDomain
		page.UpdatedAt = now

		if err := w.repo.Update(ctx, &page); err != nil {
			return nil, w.storeError(fields, err, "updating published page")
		}
	} else {
		page = Page{
			ID:           w.newID(),
			Slug:         slug,
			ProjectID:    projectID,
			UserID:       userID,
			Title:        title,
			HTMLContent:  input.HTML,
			CustomDomain: customDomain,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := w.repo.Create(ctx, &page); err != nil {
			return nil, w.storeError(fields, err, "creating published page")
		}
	}

	w.notifyProject(ctx, fields, func(taskCtx context.Context) error {
		return w.projects.MarkPublished(taskCtx, userID, projectID, page.ID)
	})

	return &PublishResult{
		Page:     page,
		URL:      w.pageURL(slug, customDomain, verified),
		IsUpdate: isUpdate,
	}, nil
}

// Unpublish deletes one of the user's pages, freeing its slug. Pages owned by other users
// are reported as not found.
func (w *Writer) Unpublish(ctx context.Context, userID, pageID string) error {
	userID = strings.TrimSpace(userID)
	pageID = strings.TrimSpace(pageID)
	if userID == "" || pageID == "" {
		return eris.Wrap(ErrInvalidInput, "user id and page id are required")
	}

	fields := logrus.Fields{"page_id": pageID, "user_id": userID, "operation": "unpublish"}

	page, err := w.repo.GetByID(ctx, pageID)
	if err != nil {
		w.logError(fields, err, "loading published page")
		return eris.Wrapf(err, "loading published page: %s", pageID)
	}
	if page == nil || page.UserID != userID {
		return eris.Wrapf(ErrNotFound, "page %s", pageID)
	}

	if err := w.repo.Delete(ctx, pageID); err != nil {
		if eris.Is(err, ErrNotFound) {
			return err
		}
		w.logError(fields, err, "deleting published page")
		return eris.Wrapf(err, "deleting published page: %s", pageID)
	}

	w.notifyProject(ctx, fields, func(taskCtx context.Context) error {
		return w.projects.ClearPublished(taskCtx, userID, page.ProjectID, page.ID)
	})

	return nil
}

// ListPages returns the user's published pages.
func (w *Writer) ListPages(ctx context.Context, userID string) ([]Page, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, eris.Wrap(ErrInvalidInput, "user id is required")
	}

	pages, err := w.repo.ListByUser(ctx, userID)
	if err != nil {
		w.logError(logrus.Fields{"user_id": userID, "operation": "list"}, err, "listing published pages")
		return nil, eris.Wrapf(err, "listing published pages for user %s", userID)
	}

	return pages, nil
}

// URLFor returns the public URL of a stored page.
func (w *Writer) URLFor(ctx context.Context, page Page) string {
	verified, err := w.domainVerified(ctx, page.UserID, page.CustomDomain)
	if err != nil {
		verified = false
	}
	return w.pageURL(page.Slug, page.CustomDomain, verified)
}

func (w *Writer) domainVerified(ctx context.Context, userID, customDomain string) (bool, error) {
	if customDomain == "" || w.domains == nil {
		return false, nil
	}

	domain, err := w.domains.Lookup(ctx, customDomain)
	if err != nil {
		return false, err
	}
	if domain == nil {
		return false, nil
	}
	if domain.UserID != userID {
		return false, eris.Wrapf(ErrInvalidDomain, "custom domain %s belongs to another account", customDomain)
	}

	return domain.Verified, nil
}

func (w *Writer) pageURL(slug, customDomain string, verified bool) string {
	host := w.hosts.DefaultHost()
	if customDomain != "" && verified {
		host = customDomain
	}
	return fmt.Sprintf("https://%s/%s", host, slug)
}

func (w *Writer) storeError(fields logrus.Fields, err error, message string) error {
	if eris.Is(err, ErrConflict) {
		return eris.Wrapf(err, "%s", message)
	}
	w.logError(fields, err, message)
	return eris.Wrap(err, message)
}

func (w *Writer) notifyProject(ctx context.Context, fields logrus.Fields, task besteffort.Task) {
	if w.projects == nil || w.dispatcher == nil {
		return
	}
	w.dispatcher.Go(ctx, "project.notify", fields, task)
}

func (w *Writer) logError(fields logrus.Fields, err error, message string) {
	applog.ComponentError(w.logger, "publishing.writer", fields, err, message)
}
