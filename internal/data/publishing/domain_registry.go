package publishing

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domain "pagecraft/app/internal/domain/publishing"
	applog "pagecraft/app/internal/platform/log"
)

// DomainRegistry manages the custom_domains table.
type DomainRegistry struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewDomainRegistry constructs a Gorm-backed custom domain registry.
func NewDomainRegistry(db *gorm.DB, logger *logrus.Logger) (*DomainRegistry, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &DomainRegistry{db: db, logger: logger, now: time.Now}, nil
}

var _ domain.DomainRegistry = (*DomainRegistry)(nil)

// Lookup returns the registered domain or nil when absent. name must already be normalized.
func (r *DomainRegistry) Lookup(ctx context.Context, name string) (*domain.Domain, error) {
	var record DomainRecord
	if err := r.db.WithContext(ctx).First(&record, "name = ?", name).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"custom_domain": name}, err, "looking up custom domain")
		return nil, eris.Wrapf(err, "looking up custom domain %s", name)
	}

	return toDomain(&record), nil
}

// List returns every registered domain ordered by name.
func (r *DomainRegistry) List(ctx context.Context) ([]domain.Domain, error) {
	var records []DomainRecord
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&records).Error; err != nil {
		r.logError(nil, err, "listing custom domains")
		return nil, eris.Wrap(err, "listing custom domains")
	}

	domains := make([]domain.Domain, 0, len(records))
	for i := range records {
		domains = append(domains, *toDomain(&records[i]))
	}
	return domains, nil
}

// Register claims an unverified domain for the user. A domain that is already registered
// yields domain.ErrConflict.
func (r *DomainRegistry) Register(ctx context.Context, name, userID string) (*domain.Domain, error) {
	if name == "" || userID == "" {
		return nil, eris.Wrap(domain.ErrInvalidInput, "domain and user id are required")
	}

	record := DomainRecord{
		Name:      name,
		UserID:    userID,
		CreatedAt: r.now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(domain.ErrConflict, "custom domain %s is already registered", name)
		}
		r.logError(logrus.Fields{"custom_domain": name, "user_id": userID}, err, "registering custom domain")
		return nil, eris.Wrapf(err, "registering custom domain %s", name)
	}

	return toDomain(&record), nil
}

// Verify marks the domain as verified. Verifying twice keeps the first timestamp.
func (r *DomainRegistry) Verify(ctx context.Context, name string) (*domain.Domain, error) {
	var verified *domain.Domain

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record DomainRecord
		if err := tx.First(&record, "name = ?", name).Error; err != nil {
			if eris.Is(err, gorm.ErrRecordNotFound) {
				return eris.Wrapf(domain.ErrNotFound, "custom domain %s", name)
			}
			return err
		}

		if !record.Verified {
			now := r.now().UTC()
			record.Verified = true
			record.VerifiedAt = &now
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		}

		verified = toDomain(&record)
		return nil
	})
	if err != nil {
		if eris.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		r.logError(logrus.Fields{"custom_domain": name}, err, "verifying custom domain")
		return nil, eris.Wrapf(err, "verifying custom domain %s", name)
	}

	return verified, nil
}

// Remove deletes the registration. Pages published on the domain keep resolving on it.
func (r *DomainRegistry) Remove(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Delete(&DomainRecord{}, "name = ?", name)
	if err := result.Error; err != nil {
		r.logError(logrus.Fields{"custom_domain": name}, err, "removing custom domain")
		return eris.Wrapf(err, "removing custom domain %s", name)
	}
	if result.RowsAffected == 0 {
		return eris.Wrapf(domain.ErrNotFound, "custom domain %s", name)
	}

	return nil
}

func (r *DomainRegistry) logError(fields logrus.Fields, err error, message string) {
	applog.ComponentError(r.logger, "publishing.domains", fields, err, message)
}

func toDomain(record *DomainRecord) *domain.Domain {
	out := &domain.Domain{
		Name:      record.Name,
		UserID:    record.UserID,
		Verified:  record.Verified,
		CreatedAt: record.CreatedAt.UTC(),
	}
	if record.VerifiedAt != nil {
		at := record.VerifiedAt.UTC()
		out.VerifiedAt = &at
	}
	return out
}
