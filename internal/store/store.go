package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"detailing-booking/internal/model"
)

// ErrNotFound is returned when no wizard session exists for an id.
var ErrNotFound = errors.New("wizard session not found")

// Store defines the interface for all database operations.
type Store interface {
	GetSession(ctx context.Context, id string) (*model.WizardSession, error)
	SaveSession(ctx context.Context, row model.WizardSession) error
	MarkSubmitted(ctx context.Context, id string, bookingID int64) error
	DeleteSession(ctx context.Context, id string) error
	PurgeSessions(ctx context.Context, olderThan time.Time) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetSession(ctx context.Context, id string) (*model.WizardSession, error) {
	var row model.WizardSession
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wizard session %s: %w", id, err)
	}
	return &row, nil
}

// SaveSession inserts the row or overwrites every wizard column of an
// existing one. CreatedAt and BookingID are kept from the first write.
func (s *gormStore) SaveSession(ctx context.Context, row model.WizardSession) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_step", "location", "service", "scheduled_at",
			"name", "phone", "email", "has_info", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save wizard session %s: %w", row.ID, err)
	}
	return nil
}

func (s *gormStore) MarkSubmitted(ctx context.Context, id string, bookingID int64) error {
	res := s.db.WithContext(ctx).Model(&model.WizardSession{}).
		Where("id = ?", id).
		Updates(map[string]any{"booking_id": bookingID, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to mark wizard session %s submitted: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.WizardSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete wizard session %s: %w", id, err)
	}
	return nil
}

// PurgeSessions removes sessions idle since before olderThan and reports how
// many were dropped.
func (s *gormStore) PurgeSessions(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", olderThan).Delete(&model.WizardSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge wizard sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
