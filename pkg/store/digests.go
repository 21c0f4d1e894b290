package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/digestkit/digestd/pkg/models"
)

// SaveDigest writes a digest snapshot. Scheduled digests reuse a
// deterministic id, so conflicts replace the snapshot.
func (s *Store) SaveDigest(ctx context.Context, digest *models.Digest) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(digest).Error
	if err != nil {
		return fmt.Errorf("saving digest: %w", err)
	}
	return nil
}

// GetDigest returns a digest snapshot, or nil.
func (s *Store) GetDigest(ctx context.Context, digestID string) (*models.Digest, error) {
	var digest models.Digest
	err := s.db.WithContext(ctx).Where("digest_id = ?", digestID).First(&digest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching digest: %w", err)
	}
	return &digest, nil
}

// InsertInteraction appends a feedback record.
func (s *Store) InsertInteraction(ctx context.Context, interaction *models.Interaction) error {
	if err := s.db.WithContext(ctx).Create(interaction).Error; err != nil {
		return fmt.Errorf("inserting interaction: %w", err)
	}
	return nil
}

// ListInteractions returns a user's feedback records, newest first.
func (s *Store) ListInteractions(ctx context.Context, userID string) ([]models.Interaction, error) {
	var interactions []models.Interaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&interactions).Error
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	return interactions, nil
}

// InsertSchedule registers a schedule.
func (s *Store) InsertSchedule(ctx context.Context, schedule *models.Schedule) error {
	if err := s.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}
	return nil
}

// GetSchedule returns a schedule, or nil.
func (s *Store) GetSchedule(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	var schedule models.Schedule
	err := s.db.WithContext(ctx).Where("schedule_id = ?", scheduleID).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching schedule: %w", err)
	}
	return &schedule, nil
}

// ListSchedules returns all schedules.
func (s *Store) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	var schedules []models.Schedule
	if err := s.db.WithContext(ctx).Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	return schedules, nil
}

// InsertDelivery records one delivery attempt. The unique index on
// digest_id makes it at-most-once per digest: a conflicting insert is a
// no-op, reported as false.
func (s *Store) InsertDelivery(ctx context.Context, delivery *models.Delivery) (bool, error) {
	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "digest_id"}}, DoNothing: true}).
		Create(delivery)
	if tx.Error != nil {
		return false, fmt.Errorf("inserting delivery: %w", tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// GetDeliveryByDigest returns the delivery recorded for a digest, or nil.
func (s *Store) GetDeliveryByDigest(ctx context.Context, digestID string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.db.WithContext(ctx).Where("digest_id = ?", digestID).First(&delivery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching delivery: %w", err)
	}
	return &delivery, nil
}

// HasDeliveryInWindow reports whether any delivery for (team, project, user)
// has a delivered_at inside [start, end). Project scope goes through the
// digest join.
func (s *Store) HasDeliveryInWindow(ctx context.Context, teamID, projectID, userID string, start, end float64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Joins("JOIN digests ON digests.digest_id = deliveries.digest_id").
		Where("deliveries.team_id = ?", teamID).
		Where("digests.project_id = ?", projectID).
		Where("deliveries.user_id = ?", userID).
		Where("deliveries.delivered_at >= ? AND deliveries.delivered_at < ?", start, end).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking deliveries in window: %w", err)
	}
	return count > 0, nil
}

// UpsertWorkspace stores an OAuth installation.
func (s *Store) UpsertWorkspace(ctx context.Context, workspace *models.Workspace) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(workspace).Error
	if err != nil {
		return fmt.Errorf("upserting workspace: %w", err)
	}
	return nil
}

// GetWorkspace returns a workspace installation, or nil.
func (s *Store) GetWorkspace(ctx context.Context, teamID string) (*models.Workspace, error) {
	var workspace models.Workspace
	err := s.db.WithContext(ctx).Where("team_id = ?", teamID).First(&workspace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching workspace: %w", err)
	}
	return &workspace, nil
}
