package publishing

import (
	"context"
	"time"
)

// Repository defines persistence operations for published pages.
//
// Create and Update return an error wrapping ErrConflict when a uniqueness constraint
// on (user_id, slug) or (custom_domain, slug) is violated. Lookups return nil, nil on miss.
type Repository interface {
	FindForHost(ctx context.Context, customDomain, slug string) (*Page, error)
	ListByUserSlug(ctx context.Context, userID, slug string) ([]Page, error)
	ListByUser(ctx context.Context, userID string) ([]Page, error)
	GetByID(ctx context.Context, id string) (*Page, error)
	Create(ctx context.Context, page *Page) error
	Update(ctx context.Context, page *Page) error
	Delete(ctx context.Context, id string) error
	CountPages(ctx context.Context) (int64, error)
}

// VisitRecorder appends to the visit log.
type VisitRecorder interface {
	Record(ctx context.Context, visit Visit) error
}

// VisitCounter aggregates the visit log. An empty pageID counts every page.
type VisitCounter interface {
	CountVisits(ctx context.Context, pageID string, since time.Time) (VisitCounts, error)
}

// DomainRegistry looks up registered custom domains. Lookup returns nil, nil on miss.
type DomainRegistry interface {
	Lookup(ctx context.Context, name string) (*Domain, error)
}

// ProjectNotifier keeps the source project's cross-reference to its published page.
type ProjectNotifier interface {
	MarkPublished(ctx context.Context, userID, projectID, pageID string) error
	ClearPublished(ctx context.Context, userID, projectID, pageID string) error
}
