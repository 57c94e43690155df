package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"habittracker/internal/model"
	"habittracker/internal/mq"
	"habittracker/pkg/metrics"
)

// HabitSource lists the habits eligible for reminding.
type HabitSource interface {
	ListActiveWithReminders(ctx context.Context) ([]model.Habit, error)
}

// EventPublisher sends reminder events to the message queue.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Notifier pushes the reminder to the user's live sessions.
type Notifier interface {
	Publish(userID int, event string, payload any)
}

// Scheduler scans active habits with reminders enabled and fires a
// habit.reminder.due event when the current time enters the configured
// window, at most once per habit per UTC day. Once-per-day is enforced
// through the deduper, which may be Redis-backed to cover multiple
// instances.
type Scheduler struct {
	habits    HabitSource
	publisher EventPublisher
	notifier  Notifier
	dedup     Deduper
	logger    *zap.Logger
	interval  time.Duration

	now func() time.Time
}

func NewScheduler(habits HabitSource, publisher EventPublisher, notifier Notifier, dedup Deduper, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		habits:    habits,
		publisher: publisher,
		notifier:  notifier,
		dedup:     dedup,
		logger:    logger,
		interval:  time.Minute,
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	habits, err := s.habits.ListActiveWithReminders(ctx)
	if err != nil {
		s.logger.Error("Failed to list habits for reminders", zap.Error(err))
		return
	}

	now := s.now().UTC()
	today := now.Format(model.DateLayout)

	for i := range habits {
		h := &habits[i]
		if !dueNow(h, now) {
			continue
		}
		if !s.dedup.AcquireOnce(ctx, h.ID, today) {
			continue
		}

		payload := mq.ReminderDuePayload{
			HabitID: h.ID,
			UserID:  h.UserID,
			Name:    h.Name,
			Message: h.Reminder.Message,
			Date:    today,
		}

		if s.publisher != nil {
			if err := s.publisher.Publish("habit.reminder.due", payload); err != nil {
				s.logger.Error("Failed to publish reminder event",
					zap.Int("habit_id", h.ID),
					zap.Error(err),
				)
				// Give the day back so the next tick retries.
				s.dedup.Release(ctx, h.ID, today)
				continue
			}
			metrics.ReminderPublishedCount.Inc()
		}

		if s.notifier != nil {
			s.notifier.Publish(h.UserID, "reminder:due", payload)
		}

		s.logger.Info("Reminder fired",
			zap.Int("habit_id", h.ID),
			zap.Int("user_id", h.UserID),
		)
	}
}

// dueNow reports whether the habit's reminder window contains the current
// time and its frequency matches the current day. Weekly reminders fire on
// the habit's start weekday, monthly ones on its start day-of-month.
func dueNow(h *model.Habit, now time.Time) bool {
	clock := now.Format("15:04")
	if clock < h.Reminder.StartTime || clock > h.Reminder.EndTime {
		return false
	}

	switch h.Reminder.Frequency {
	case "weekly":
		return now.Weekday() == h.StartDate.UTC().Weekday()
	case "monthly":
		return now.Day() == h.StartDate.UTC().Day()
	default:
		return true
	}
}
