package publishing

import "time"

// PageRecord is a published page row. CustomDomain is empty for pages served on the default host.
type PageRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	UserID       string    `gorm:"size:255;not null;uniqueIndex:idx_published_pages_user_slug,priority:1"`
	Slug         string    `gorm:"size:255;not null;uniqueIndex:idx_published_pages_user_slug,priority:2;uniqueIndex:idx_published_pages_host_slug,priority:2"`
	CustomDomain string    `gorm:"size:253;not null;uniqueIndex:idx_published_pages_host_slug,priority:1"`
	ProjectID    string    `gorm:"size:255;not null;index:idx_published_pages_project"`
	Title        string    `gorm:"size:255"`
	HTMLContent  string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName defines the table name for published pages.
func (PageRecord) TableName() string {
	return "published_pages"
}

// VisitRecord is one entry in the append-only visit log.
type VisitRecord struct {
	ID        string    `gorm:"primaryKey;size:26"`
	PageID    string    `gorm:"size:36;not null;index:idx_page_visits_page_time,priority:1"`
	Slug      string    `gorm:"size:255;not null"`
	Host      string    `gorm:"size:253"`
	Referrer  string    `gorm:"size:2048"`
	UserAgent string    `gorm:"size:512"`
	IPAddress string    `gorm:"size:64"`
	VisitedAt time.Time `gorm:"not null;index:idx_page_visits_page_time,priority:2;index:idx_page_visits_time"`
}

// TableName defines the table name for the visit log.
func (VisitRecord) TableName() string {
	return "page_visits"
}

// DomainRecord is a custom domain registered to a user.
type DomainRecord struct {
	Name       string    `gorm:"primaryKey;size:253"`
	UserID     string    `gorm:"size:255;not null;index"`
	Verified   bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	VerifiedAt *time.Time
}

// TableName defines the table name for custom domains.
func (DomainRecord) TableName() string {
	return "custom_domains"
}

// ProjectRecord holds the columns of the editor's projects table this service touches.
type ProjectRecord struct {
	ID              string  `gorm:"primaryKey;size:255"`
	UserID          string  `gorm:"size:255;not null;index"`
	PublishedPageID *string `gorm:"size:36"`
	UpdatedAt       time.Time
}

// TableName defines the table name for projects.
func (ProjectRecord) TableName() string {
	return "projects"
}
