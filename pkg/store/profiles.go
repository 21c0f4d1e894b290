package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/digestkit/digestd/pkg/models"
)

// UpsertRole writes a role and its vector.
func (s *Store) UpsertRole(ctx context.Context, role *models.Role) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(role).Error
	if err != nil {
		return fmt.Errorf("upserting role: %w", err)
	}
	return nil
}

// GetRole returns a role, or nil.
func (s *Store) GetRole(ctx context.Context, roleID string) (*models.Role, error) {
	var role models.Role
	err := s.db.WithContext(ctx).Where("role_id = ?", roleID).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching role: %w", err)
	}
	return &role, nil
}

// UpsertPhase writes a phase and its vector.
func (s *Store) UpsertPhase(ctx context.Context, phase *models.Phase) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(phase).Error
	if err != nil {
		return fmt.Errorf("upserting phase: %w", err)
	}
	return nil
}

// GetPhase returns a phase, or nil.
func (s *Store) GetPhase(ctx context.Context, phaseKey string) (*models.Phase, error) {
	var phase models.Phase
	err := s.db.WithContext(ctx).Where("phase_key = ?", phaseKey).First(&phase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching phase: %w", err)
	}
	return &phase, nil
}

// UpsertProject writes a project.
func (s *Store) UpsertProject(ctx context.Context, project *models.Project) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(project).Error
	if err != nil {
		return fmt.Errorf("upserting project: %w", err)
	}
	return nil
}

// GetProject returns a project, or nil.
func (s *Store) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching project: %w", err)
	}
	return &project, nil
}

// UpdateProjectPhase moves a project to a new phase.
func (s *Store) UpdateProjectPhase(ctx context.Context, projectID, phaseKey string) error {
	err := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("project_id = ?", projectID).
		Update("current_phase", phaseKey).Error
	if err != nil {
		return fmt.Errorf("updating project phase: %w", err)
	}
	return nil
}

// UpsertUser writes a user row.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(user).Error
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// GetUser returns a user, or nil.
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return &user, nil
}

// UpdateUserRole reassigns the role and resets the user vector to the role
// vector.
func (s *Store) UpdateUserRole(ctx context.Context, userID, roleID string, vec []float64, updatedAt float64) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"role_id":    roleID,
			"vector":     datatypes.NewJSONSlice(vec),
			"updated_at": updatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("updating user role: %w", err)
	}
	return nil
}

// UpdateUserVector persists a moved personalization vector.
func (s *Store) UpdateUserVector(ctx context.Context, userID string, vec []float64, updatedAt float64) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"vector":     datatypes.NewJSONSlice(vec),
			"updated_at": updatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("updating user vector: %w", err)
	}
	return nil
}

// AddUserProject associates a user with a project (idempotent).
func (s *Store) AddUserProject(ctx context.Context, userID, projectID string) error {
	rec := models.UserProject{UserID: userID, ProjectID: projectID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("adding user project: %w", err)
	}
	return nil
}

// ListUserProjects returns the project ids a user belongs to.
func (s *Store) ListUserProjects(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.UserProject{}).
		Where("user_id = ?", userID).
		Order("project_id ASC").
		Pluck("project_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing user projects: %w", err)
	}
	return ids, nil
}

// AddUserChannel associates a user with a channel (idempotent).
func (s *Store) AddUserChannel(ctx context.Context, userID, channelID string) error {
	rec := models.UserChannel{UserID: userID, ChannelID: channelID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("adding user channel: %w", err)
	}
	return nil
}

// ListUserChannels returns the channel ids a user belongs to.
func (s *Store) ListUserChannels(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.UserChannel{}).
		Where("user_id = ?", userID).
		Order("channel_id ASC").
		Pluck("channel_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing user channels: %w", err)
	}
	return ids, nil
}

// AddProjectChannel scopes a project to a channel (idempotent).
func (s *Store) AddProjectChannel(ctx context.Context, projectID, channelID string) error {
	rec := models.ProjectChannel{ProjectID: projectID, ChannelID: channelID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("adding project channel: %w", err)
	}
	return nil
}

// ListProjectChannels returns the channel ids scoped to a project.
func (s *Store) ListProjectChannels(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.ProjectChannel{}).
		Where("project_id = ?", projectID).
		Order("channel_id ASC").
		Pluck("channel_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing project channels: %w", err)
	}
	return ids, nil
}
