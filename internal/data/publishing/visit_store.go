package publishing

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domain "pagecraft/app/internal/domain/publishing"
	applog "pagecraft/app/internal/platform/log"
)

// Column sizes of VisitRecord.
const (
	maxHostLength      = 253
	maxReferrerLength  = 2048
	maxUserAgentLength = 512
	maxIPAddressLength = 64
)

// VisitStore appends to and aggregates the page_visits table.
type VisitStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewVisitStore constructs a Gorm-backed visit log.
func NewVisitStore(db *gorm.DB, logger *logrus.Logger) (*VisitStore, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &VisitStore{db: db, logger: logger}, nil
}

var (
	_ domain.VisitRecorder = (*VisitStore)(nil)
	_ domain.VisitCounter  = (*VisitStore)(nil)
)

// Record appends a visit. Visits without a resolved page are ignored.
func (s *VisitStore) Record(ctx context.Context, visit domain.Visit) error {
	if visit.PageID == "" {
		return nil
	}

	visitedAt := visit.VisitedAt.UTC()
	if visitedAt.IsZero() {
		visitedAt = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(visitedAt), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return eris.Wrap(err, "generating visit id")
	}

	record := VisitRecord{
		ID:        id.String(),
		PageID:    visit.PageID,
		Slug:      visit.Slug,
		Host:      truncate(visit.Host, maxHostLength),
		Referrer:  truncate(visit.Referrer, maxReferrerLength),
		UserAgent: truncate(visit.UserAgent, maxUserAgentLength),
		IPAddress: truncate(visit.IPAddress, maxIPAddressLength),
		VisitedAt: visitedAt,
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return eris.Wrapf(err, "recording visit for page %s", visit.PageID)
	}

	return nil
}

// CountVisits returns the total and recent visit counts for a page, or for every page when
// pageID is empty.
func (s *VisitStore) CountVisits(ctx context.Context, pageID string, since time.Time) (domain.VisitCounts, error) {
	var counts domain.VisitCounts

	base := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&VisitRecord{})
		if pageID != "" {
			query = query.Where("page_id = ?", pageID)
		}
		return query
	}

	if err := base().Count(&counts.Total).Error; err != nil {
		applog.ComponentError(s.logger, "publishing.visits", logrus.Fields{"page_id": pageID}, err, "counting visits")
		return domain.VisitCounts{}, eris.Wrap(err, "counting visits")
	}

	if err := base().Where("visited_at >= ?", since.UTC()).Count(&counts.Last30Days).Error; err != nil {
		applog.ComponentError(s.logger, "publishing.visits", logrus.Fields{"page_id": pageID}, err, "counting recent visits")
		return domain.VisitCounts{}, eris.Wrap(err, "counting recent visits")
	}

	return counts, nil
}

// truncate caps value at limit bytes and drops invalid UTF-8, including a rune split by the cut.
func truncate(value string, limit int) string {
	if len(value) > limit {
		value = value[:limit]
	}
	return strings.ToValidUTF8(value, "")
}
