package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digestkit/digestd/pkg/models"
)

func TestCreateSchedule_Defaults(t *testing.T) {
	svc := NewScheduleService(newTestStore(t))
	ctx := context.Background()

	schedule, err := svc.Create(ctx, models.CreateScheduleRequest{
		TeamID:    "T001",
		ProjectID: "drone",
		UserID:    "U001",
		TimeOfDay: "09:00",
	})
	require.NoError(t, err)
	assert.Contains(t, schedule.ScheduleID, "sch-")
	assert.Equal(t, "UTC", schedule.Timezone)
	assert.True(t, schedule.IsEnabled)

	got, err := svc.Get(ctx, schedule.ScheduleID)
	require.NoError(t, err)
	assert.Equal(t, schedule.ScheduleID, got.ScheduleID)
}

func TestCreateSchedule_ExplicitFields(t *testing.T) {
	svc := NewScheduleService(newTestStore(t))
	disabled := false

	schedule, err := svc.Create(context.Background(), models.CreateScheduleRequest{
		TeamID:    "T001",
		ProjectID: "drone",
		UserID:    "U001",
		TimeOfDay: "17:30",
		Timezone:  "America/New_York",
		IsEnabled: &disabled,
	})
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", schedule.Timezone)
	assert.False(t, schedule.IsEnabled)
}

func TestGetSchedule_Unknown(t *testing.T) {
	svc := NewScheduleService(newTestStore(t))

	_, err := svc.Get(context.Background(), "sch-missing")
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}
