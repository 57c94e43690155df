package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"go.uber.org/zap"

	"habittracker/internal/apperror"
	"habittracker/internal/model"
	"habittracker/internal/repository"
)

const MaxNotesLength = 500

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ProgressService owns the progress upsert and completion-derivation logic.
// "Today" is always computed in UTC so the future-date check cannot skew by
// a day depending on server locale.
type ProgressService struct {
	progressRepo ProgressRepository
	habitRepo    HabitRepository
	notifier     Notifier
	logger       *zap.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewProgressService(progressRepo ProgressRepository, habitRepo HabitRepository, notifier Notifier, logger *zap.Logger) *ProgressService {
	return &ProgressService{
		progressRepo: progressRepo,
		habitRepo:    habitRepo,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// ProgressInput is the write payload for upsert and update-by-id.
type ProgressInput struct {
	HabitID int      `json:"habitId"`
	Date    string   `json:"date"`
	Value   *float64 `json:"value"`
	Notes   string   `json:"notes"`
}

func (s *ProgressService) today() string {
	return s.now().UTC().Format(model.DateLayout)
}

func (s *ProgressService) validate(in ProgressInput) error {
	fields := map[string]string{}

	if in.HabitID <= 0 {
		fields["habitId"] = "habitId is required"
	}
	if !dateRe.MatchString(in.Date) {
		fields["date"] = "date must be YYYY-MM-DD"
	} else if _, err := time.Parse(model.DateLayout, in.Date); err != nil {
		fields["date"] = "date is not a valid calendar day"
	}
	if in.Value == nil {
		fields["value"] = "value is required"
	} else if *in.Value < 0 {
		fields["value"] = "value must not be negative"
	}
	if len(in.Notes) > MaxNotesLength {
		fields["notes"] = fmt.Sprintf("notes must be %d characters or less", MaxNotesLength)
	}

	if len(fields) > 0 {
		return apperror.Validation("invalid progress data", fields)
	}

	// Zero-padded ISO dates compare lexically in chronological order.
	if in.Date > s.today() {
		return apperror.FutureDate("cannot log progress for a future date")
	}
	return nil
}

// derive applies the completion rule: completed iff value reaches the
// habit's target, completedAt set only while completed.
func (s *ProgressService) derive(p *model.Progress, target int) {
	p.Completed = p.Value >= float64(target)
	if p.Completed {
		now := s.now()
		p.CompletedAt = &now
	} else {
		p.CompletedAt = nil
	}
}

// Upsert creates or overwrites the progress record for (user, habit, date).
// The returned bool is true when a new record was inserted. A losing racer
// on the unique constraint falls back to the update path instead of
// surfacing an error; the upsert is idempotent per key.
func (s *ProgressService) Upsert(ctx context.Context, userID int, in ProgressInput) (*model.Progress, bool, error) {
	if err := s.validate(in); err != nil {
		return nil, false, err
	}

	// Doubles as the ownership check: another user's habit is not found.
	habit, err := s.habitRepo.FindByID(ctx, userID, in.HabitID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.progressRepo.FindByHabitAndDate(ctx, userID, habit.ID, in.Date)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, err
	}

	if existing != nil {
		p, err := s.overwrite(ctx, existing, in, habit)
		return p, false, err
	}

	p := &model.Progress{
		UserID:  userID,
		HabitID: habit.ID,
		Date:    in.Date,
		Value:   *in.Value,
		Notes:   in.Notes,
	}
	s.derive(p, habit.TargetValue)

	if err := s.progressRepo.Insert(ctx, p); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, false, err
		}
		// Lost the insert race: a concurrent request created the record
		// first. Recover by updating the now-existing row.
		s.logger.Debug("Progress insert raced, retrying as update",
			zap.Int("habit_id", habit.ID),
			zap.String("date", in.Date),
		)
		winner, err := s.progressRepo.FindByHabitAndDate(ctx, userID, habit.ID, in.Date)
		if err != nil {
			return nil, false, err
		}
		p, err := s.overwrite(ctx, winner, in, habit)
		return p, false, err
	}

	p.Habit = habit.Summary()
	s.logger.Info("Progress logged",
		zap.Int("user_id", userID),
		zap.Int("habit_id", habit.ID),
		zap.String("date", p.Date),
		zap.Bool("completed", p.Completed),
	)
	s.notifier.Publish(userID, "progress:updated", p)
	return p, true, nil
}

func (s *ProgressService) overwrite(ctx context.Context, p *model.Progress, in ProgressInput, habit *model.Habit) (*model.Progress, error) {
	p.Value = *in.Value
	p.Notes = in.Notes
	s.derive(p, habit.TargetValue)

	if err := s.progressRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	p.Habit = habit.Summary()
	s.notifier.Publish(p.UserID, "progress:updated", p)
	return p, nil
}

// UpdateByID rewrites a specific record. Moving it onto a (habit, date) pair
// already held by a different record is a conflict, never a silent merge.
func (s *ProgressService) UpdateByID(ctx context.Context, userID, id int, in ProgressInput) (*model.Progress, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	habit, err := s.habitRepo.FindByID(ctx, userID, in.HabitID)
	if err != nil {
		return nil, err
	}

	p, err := s.progressRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	occupant, err := s.progressRepo.FindByHabitAndDate(ctx, userID, habit.ID, in.Date)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	if occupant != nil && occupant.ID != p.ID {
		return nil, apperror.Conflict("progress already exists for this habit and date")
	}

	p.HabitID = habit.ID
	p.Date = in.Date
	p.Value = *in.Value
	p.Notes = in.Notes
	s.derive(p, habit.TargetValue)

	if err := s.progressRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	p.Habit = habit.Summary()
	s.notifier.Publish(userID, "progress:updated", p)
	return p, nil
}

// ToggleCompletion flips the completed flag directly, bypassing the
// value-vs-target rule. The manual override wins; value and completed may
// diverge afterwards and the system tolerates that.
func (s *ProgressService) ToggleCompletion(ctx context.Context, userID, id int) (*model.Progress, error) {
	p, err := s.progressRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	p.Completed = !p.Completed
	if p.Completed {
		now := s.now()
		p.CompletedAt = &now
	} else {
		p.CompletedAt = nil
	}

	if err := s.progressRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.notifier.Publish(userID, "progress:updated", p)
	return p, nil
}

func (s *ProgressService) Delete(ctx context.Context, userID, id int) error {
	if err := s.progressRepo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.notifier.Publish(userID, "progress:deleted", map[string]int{"id": id})
	return nil
}

// Query returns the user's records matching the filter, newest date first.
// Date filters must be well-formed calendar days.
func (s *ProgressService) Query(ctx context.Context, userID int, f repository.ProgressFilter) ([]model.Progress, error) {
	fields := map[string]string{}
	for name, d := range map[string]string{"date": f.Date, "startDate": f.StartDate, "endDate": f.EndDate} {
		if d != "" && !dateRe.MatchString(d) {
			fields[name] = "must be YYYY-MM-DD"
		}
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("invalid progress query", fields)
	}

	return s.progressRepo.List(ctx, userID, f)
}

// Stats aggregates completed counts and completion rates for the dashboard.
// Rates divide by active habits x period days; with no active habits the
// rate is 0, never a division by zero.
func (s *ProgressService) Stats(ctx context.Context, userID int) (*model.ProgressStats, error) {
	active, err := s.habitRepo.CountActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC()
	periods := []struct {
		from string
		days int
	}{
		{today.Format(model.DateLayout), 1},
		{today.AddDate(0, 0, -6).Format(model.DateLayout), 7},
		{today.AddDate(0, 0, -29).Format(model.DateLayout), 30},
	}

	stats := &model.ProgressStats{ActiveHabits: active}
	out := []*model.PeriodStats{&stats.Today, &stats.Week, &stats.Month}

	for i, period := range periods {
		count, err := s.progressRepo.CompletedCount(ctx, userID, period.from)
		if err != nil {
			return nil, err
		}
		out[i].Completed = count
		out[i].Rate = completionRate(count, active, period.days)
	}

	allTime, err := s.progressRepo.CompletedCount(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	stats.AllTime = allTime

	return stats, nil
}

func completionRate(completed, activeHabits, days int) int {
	if activeHabits == 0 || days == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(activeHabits*days)))
}
