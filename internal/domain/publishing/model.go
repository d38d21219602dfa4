package publishing

import "time"

// Page is a published page within the domain layer. CustomDomain is empty for pages
// served on the default host.
type Page struct {
	ID           string
	Slug         string
	ProjectID    string
	UserID       string
	Title        string
	HTMLContent  string
	CustomDomain string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ResolvedPage is a page selected for serving, carrying normalized HTML.
type ResolvedPage struct {
	Page Page
	HTML string
}

// ResolveRequest identifies what a public request asked for.
type ResolveRequest struct {
	Host      string
	Slug      string
	Referrer  string
	UserAgent string
	ClientIP  string
}

// PublishInput carries a publish request from the editor.
type PublishInput struct {
	UserID       string
	ProjectID    string
	Slug         string
	HTML         string
	CustomDomain string
}

// PublishResult describes the outcome of a successful publish.
type PublishResult struct {
	Page     Page
	URL      string
	IsUpdate bool
}

// Visit is a single append-only page view.
type Visit struct {
	PageID    string
	Slug      string
	Host      string
	Referrer  string
	UserAgent string
	IPAddress string
	VisitedAt time.Time
}

// VisitCounts aggregates the visit log.
type VisitCounts struct {
	Total      int64
	Last30Days int64
}

// Domain is a custom hostname registered to a user.
type Domain struct {
	Name       string
	UserID     string
	Verified   bool
	CreatedAt  time.Time
	VerifiedAt *time.Time
}
