package services

import (
	"context"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/store"
)

// ScheduleService registers digest delivery schedules.
type ScheduleService struct {
	store *store.Store
}

// NewScheduleService creates the schedule service.
func NewScheduleService(st *store.Store) *ScheduleService {
	return &ScheduleService{store: st}
}

// Create registers a daily delivery. Timezone defaults to UTC and new
// schedules are enabled unless the request says otherwise.
func (s *ScheduleService) Create(ctx context.Context, req models.CreateScheduleRequest) (*models.Schedule, error) {
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}
	schedule := &models.Schedule{
		ScheduleID: newID("sch"),
		TeamID:     req.TeamID,
		ProjectID:  req.ProjectID,
		UserID:     req.UserID,
		TimeOfDay:  req.TimeOfDay,
		Timezone:   tz,
		IsEnabled:  enabled,
	}
	if err := s.store.InsertSchedule(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Get returns a schedule by id.
func (s *ScheduleService) Get(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	schedule, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}
