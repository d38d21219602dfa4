package publishing

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	domain "pagecraft/app/internal/domain/publishing"
)

// ProjectStore maintains projects.published_page_id.
type ProjectStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProjectStore constructs a Gorm-backed project notifier.
func NewProjectStore(db *gorm.DB) (*ProjectStore, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &ProjectStore{db: db, now: time.Now}, nil
}

var _ domain.ProjectNotifier = (*ProjectStore)(nil)

// MarkPublished points the user's project at pageID.
func (s *ProjectStore) MarkPublished(ctx context.Context, userID, projectID, pageID string) error {
	result := s.db.WithContext(ctx).
		Model(&ProjectRecord{}).
		Where("id = ? AND user_id = ?", projectID, userID).
		Updates(map[string]any{"published_page_id": pageID, "updated_at": s.now().UTC()})
	if err := result.Error; err != nil {
		return eris.Wrapf(err, "marking project %s published", projectID)
	}
	if result.RowsAffected == 0 {
		return eris.Errorf("project %s not found for user %s", projectID, userID)
	}

	return nil
}

// ClearPublished removes the reference when it still points at pageID.
func (s *ProjectStore) ClearPublished(ctx context.Context, userID, projectID, pageID string) error {
	err := s.db.WithContext(ctx).
		Model(&ProjectRecord{}).
		Where("id = ? AND user_id = ? AND published_page_id = ?", projectID, userID, pageID).
		Updates(map[string]any{"published_page_id": nil, "updated_at": s.now().UTC()}).Error
	if err != nil {
		return eris.Wrapf(err, "clearing published page of project %s", projectID)
	}

	return nil
}

// PublishedPageID returns the project's current cross-reference, or "" when unset or unknown.
func (s *ProjectStore) PublishedPageID(ctx context.Context, projectID string) (string, error) {
	var record ProjectRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", projectID).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", eris.Wrapf(err, "loading project %s", projectID)
	}
	if record.PublishedPageID == nil {
		return "", nil
	}
	return *record.PublishedPageID, nil
}
