package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/services"
	"github.com/digestkit/digestd/pkg/store"
)

// DigestBuilder builds a digest snapshot under a caller-chosen id.
type DigestBuilder interface {
	BuildDigestWithID(ctx context.Context, userID, projectID string, n int, digestID string) (*models.DigestView, error)
}

const (
	// checkInterval is how often due times are evaluated. One check per
	// minute matches the HH:MM schedule resolution.
	checkInterval = 60 * time.Second

	// scheduledDigestSize is the item budget for scheduled digests.
	scheduledDigestSize = 10
)

// Scheduler fires enabled schedules when the wall clock in their timezone
// matches their time of day.
type Scheduler struct {
	store     *store.Store
	builder   DigestBuilder
	deliverer *Service
	interval  time.Duration
	now       func() float64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates the scheduler.
func NewScheduler(st *store.Store, builder DigestBuilder, deliverer *Service) *Scheduler {
	return &Scheduler{
		store:     st,
		builder:   builder,
		deliverer: deliverer,
		interval:  checkInterval,
		now:       epochNow,
	}
}

// Start launches the background loop. The first check runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		slog.Info("Delivery scheduler started", "interval", s.interval)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				slog.Info("Delivery scheduler stopped")
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// tick evaluates every enabled schedule once.
func (s *Scheduler) tick(ctx context.Context) {
	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		slog.Error("Listing schedules failed", "error", err)
		return
	}
	now := s.now()
	for _, schedule := range schedules {
		if !schedule.IsEnabled {
			continue
		}
		if err := s.fire(ctx, schedule, now); err != nil {
			slog.Error("Scheduled delivery failed",
				"schedule_id", schedule.ScheduleID,
				"error", err)
		}
	}
}

// fire delivers a schedule's digest when its local HH:MM matches and
// nothing was delivered for (team, project, user) inside the current local
// minute. The minute guard is what keeps a sub-minute check interval from
// double-sending.
func (s *Scheduler) fire(ctx context.Context, schedule models.Schedule, now float64) error {
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		// Unknown timezones degrade to UTC rather than silencing the schedule.
		loc = time.UTC
	}
	local := time.Unix(int64(now), 0).In(loc)
	if local.Format("15:04") != schedule.TimeOfDay {
		return nil
	}

	minuteStart := float64(local.Truncate(time.Minute).Unix())
	delivered, err := s.store.HasDeliveryInWindow(ctx,
		schedule.TeamID, schedule.ProjectID, schedule.UserID, minuteStart, minuteStart+60)
	if err != nil {
		return err
	}
	if delivered {
		return nil
	}

	digest, err := s.builder.BuildDigestWithID(ctx,
		schedule.UserID, schedule.ProjectID, scheduledDigestSize, newID("dig"))
	if err != nil {
		return err
	}
	_, err = s.deliverer.Deliver(ctx, digest.DigestID, schedule.TeamID, schedule.UserID, digest.Items)
	return err
}

// RunNow builds and delivers a schedule's digest immediately. The digest id
// is deterministic per schedule, so a repeated invocation reports
// already_delivered instead of posting again.
func (s *Scheduler) RunNow(ctx context.Context, scheduleID string) (*models.RunNowResult, error) {
	schedule, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, services.ErrScheduleNotFound
	}

	digestID := "dig-sched-" + schedule.ScheduleID
	existing, err := s.store.GetDeliveryByDigest(ctx, digestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &models.RunNowResult{
			Status:     "already_delivered",
			DigestID:   digestID,
			DeliveryID: existing.DeliveryID,
		}, nil
	}

	digest, err := s.builder.BuildDigestWithID(ctx,
		schedule.UserID, schedule.ProjectID, scheduledDigestSize, digestID)
	if err != nil {
		return nil, err
	}
	result, err := s.deliverer.Deliver(ctx, digest.DigestID, schedule.TeamID, schedule.UserID, digest.Items)
	if err != nil {
		return nil, err
	}
	status := result.Status
	if status == "duplicate" {
		status = "already_delivered"
	}
	return &models.RunNowResult{
		Status:     status,
		DigestID:   digestID,
		DeliveryID: result.DeliveryID,
		SlackTS:    result.SlackTS,
	}, nil
}
