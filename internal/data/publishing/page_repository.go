package publishing

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domain "pagecraft/app/internal/domain/publishing"
	applog "pagecraft/app/internal/platform/log"
)

// PageRepository persists published pages using a Gorm database connection.
type PageRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewPageRepository constructs a Gorm-backed page repository.
func NewPageRepository(db *gorm.DB, logger *logrus.Logger) (*PageRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &PageRepository{db: db, logger: logger}, nil
}

var _ domain.Repository = (*PageRepository)(nil)

// FindForHost returns the page served at slug in the customDomain namespace, or nil when absent.
// An empty customDomain selects the default-host namespace.
func (r *PageRepository) FindForHost(ctx context.Context, customDomain, slug string) (*domain.Page, error) {
	var record PageRecord
	err := r.db.WithContext(ctx).
		Where("slug = ? AND custom_domain = ?", slug, customDomain).
		First(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": slug, "custom_domain": customDomain}, err, "fetching page for host")
		return nil, eris.Wrapf(err, "fetching page %s for host %q", slug, customDomain)
	}

	return toDomainPage(&record), nil
}

// ListByUserSlug returns the user's pages with the given slug.
func (r *PageRepository) ListByUserSlug(ctx context.Context, userID, slug string) ([]domain.Page, error) {
	var records []PageRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND slug = ?", userID, slug).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		r.logError(logrus.Fields{"slug": slug, "user_id": userID}, err, "listing pages by user slug")
		return nil, eris.Wrapf(err, "listing pages for user %s slug %s", userID, slug)
	}

	return toDomainPages(records), nil
}

// ListByUser returns every page owned by the user ordered by slug.
func (r *PageRepository) ListByUser(ctx context.Context, userID string) ([]domain.Page, error) {
	var records []PageRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("slug ASC").Find(&records).Error; err != nil {
		r.logError(logrus.Fields{"user_id": userID}, err, "listing pages by user")
		return nil, eris.Wrapf(err, "listing pages for user %s", userID)
	}

	return toDomainPages(records), nil
}

// ListAll returns every page ordered by slug. Used by the admin CLI.
func (r *PageRepository) ListAll(ctx context.Context) ([]domain.Page, error) {
	var records []PageRecord
	if err := r.db.WithContext(ctx).Order("custom_domain ASC, slug ASC").Find(&records).Error; err != nil {
		r.logError(nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	return toDomainPages(records), nil
}

// GetByID returns the page with the given id or nil when not found.
func (r *PageRepository) GetByID(ctx context.Context, id string) (*domain.Page, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, nil
	}

	var record PageRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", trimmed).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"page_id": trimmed}, err, "fetching page by id")
		return nil, eris.Wrapf(err, "fetching page by id: %s", trimmed)
	}

	return toDomainPage(&record), nil
}

// Create stores a new page. Unique index violations are reported as domain.ErrConflict.
func (r *PageRepository) Create(ctx context.Context, page *domain.Page) error {
	if page == nil {
		return eris.New("page is nil")
	}

	record := toPageRecord(page)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(domain.ErrConflict, "slug %s is already published", page.Slug)
		}
		r.logError(logrus.Fields{"slug": page.Slug, "page_id": page.ID}, err, "creating page")
		return eris.Wrapf(err, "creating page: %s", page.Slug)
	}

	return nil
}

// Update overwrites the mutable columns of an existing page.
func (r *PageRepository) Update(ctx context.Context, page *domain.Page) error {
	if page == nil {
		return eris.New("page is nil")
	}

	result := r.db.WithContext(ctx).
		Model(&PageRecord{}).
		Where("id = ?", page.ID).
		Updates(map[string]any{
			"title":         page.Title,
			"html_content":  page.HTMLContent,
			"custom_domain": page.CustomDomain,
			"updated_at":    page.UpdatedAt,
		})
	if err := result.Error; err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(domain.ErrConflict, "slug %s is already published", page.Slug)
		}
		r.logError(logrus.Fields{"slug": page.Slug, "page_id": page.ID}, err, "updating page")
		return eris.Wrapf(err, "updating page: %s", page.ID)
	}
	if result.RowsAffected == 0 {
		return eris.Wrapf(domain.ErrNotFound, "page %s", page.ID)
	}

	return nil
}

// Delete hard-deletes the page, freeing its slug immediately.
func (r *PageRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&PageRecord{}, "id = ?", id)
	if err := result.Error; err != nil {
		r.logError(logrus.Fields{"page_id": id}, err, "deleting page")
		return eris.Wrapf(err, "deleting page: %s", id)
	}
	if result.RowsAffected == 0 {
		return eris.Wrapf(domain.ErrNotFound, "page %s", id)
	}

	return nil
}

// CountPages returns the total number of published pages.
func (r *PageRepository) CountPages(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&PageRecord{}).Count(&count).Error; err != nil {
		r.logError(nil, err, "counting pages")
		return 0, eris.Wrap(err, "counting pages")
	}

	return count, nil
}

func (r *PageRepository) logError(fields logrus.Fields, err error, message string) {
	applog.ComponentError(r.logger, "publishing.pages", fields, err, message)
}

func toPageRecord(page *domain.Page) PageRecord {
	return PageRecord{
		ID:           page.ID,
		UserID:       page.UserID,
		Slug:         page.Slug,
		CustomDomain: page.CustomDomain,
		ProjectID:    page.ProjectID,
		Title:        page.Title,
		HTMLContent:  page.HTMLContent,
		CreatedAt:    page.CreatedAt,
		UpdatedAt:    page.UpdatedAt,
	}
}

func toDomainPage(record *PageRecord) *domain.Page {
	if record == nil {
		return nil
	}

	return &domain.Page{
		ID:           record.ID,
		Slug:         record.Slug,
		ProjectID:    record.ProjectID,
		UserID:       record.UserID,
		Title:        record.Title,
		HTMLContent:  record.HTMLContent,
		CustomDomain: record.CustomDomain,
		CreatedAt:    record.CreatedAt.UTC(),
		UpdatedAt:    record.UpdatedAt.UTC(),
	}
}

func toDomainPages(records []PageRecord) []domain.Page {
	pages := make([]domain.Page, 0, len(records))
	for i := range records {
		pages = append(pages, *toDomainPage(&records[i]))
	}
	return pages
}
