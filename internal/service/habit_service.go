package service

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"habittracker/internal/apperror"
	"habittracker/internal/model"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MaxUnitLength        = 20
	MaxReminderLength    = 200

	DefaultColor = "#2196f3"
)

var (
	colorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	clockRe = regexp.MustCompile(`^(?:[01][0-9]|2[0-3]):[0-5][0-9]$`)
)

type HabitService struct {
	habitRepo HabitRepository
	notifier  Notifier
	logger    *zap.Logger
}

func NewHabitService(habitRepo HabitRepository, notifier Notifier, logger *zap.Logger) *HabitService {
	return &HabitService{
		habitRepo: habitRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// HabitInput is the create payload.
type HabitInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Frequency   string          `json:"frequency"`
	TargetValue *int            `json:"targetValue"`
	Unit        string          `json:"unit"`
	Color       string          `json:"color"`
	Reminder    *model.Reminder `json:"reminder"`
}

// HabitUpdate carries partial update semantics: nil fields leave the prior
// value unchanged.
type HabitUpdate struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Frequency   *string         `json:"frequency"`
	TargetValue *int            `json:"targetValue"`
	Unit        *string         `json:"unit"`
	Color       *string         `json:"color"`
	Reminder    *model.Reminder `json:"reminder"`
	IsActive    *bool           `json:"isActive"`
}

func (s *HabitService) List(ctx context.Context, userID int) ([]model.Habit, error) {
	return s.habitRepo.ListByUser(ctx, userID)
}

func (s *HabitService) Get(ctx context.Context, userID, id int) (*model.Habit, error) {
	return s.habitRepo.FindByID(ctx, userID, id)
}

func (s *HabitService) Create(ctx context.Context, userID int, in HabitInput) (*model.Habit, error) {
	h := &model.Habit{
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Frequency:   in.Frequency,
		TargetValue: 1,
		Unit:        in.Unit,
		Color:       in.Color,
		IsActive:    true,
	}
	if in.Category == "" {
		h.Category = model.DefaultCategory
	}
	if in.Frequency == "" {
		h.Frequency = "daily"
	}
	if in.TargetValue != nil {
		h.TargetValue = *in.TargetValue
	}
	if in.Color == "" {
		h.Color = DefaultColor
	}
	if in.Reminder != nil {
		h.Reminder = *in.Reminder
	}
	if h.Reminder.Frequency == "" {
		h.Reminder.Frequency = "daily"
	}

	if fields := validateHabit(h); len(fields) > 0 {
		return nil, apperror.Validation("invalid habit data", fields)
	}

	if err := s.habitRepo.Insert(ctx, h); err != nil {
		return nil, err
	}

	s.logger.Info("Habit created",
		zap.Int("user_id", userID),
		zap.Int("habit_id", h.ID),
		zap.String("name", h.Name),
	)
	s.notifier.Publish(userID, "habit:created", h)
	return h, nil
}

func (s *HabitService) Update(ctx context.Context, userID, id int, in HabitUpdate) (*model.Habit, error) {
	h, err := s.habitRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		h.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		h.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		h.Category = *in.Category
	}
	if in.Frequency != nil {
		h.Frequency = *in.Frequency
	}
	if in.TargetValue != nil {
		h.TargetValue = *in.TargetValue
	}
	if in.Unit != nil {
		h.Unit = *in.Unit
	}
	if in.Color != nil {
		h.Color = *in.Color
	}
	if in.Reminder != nil {
		h.Reminder = *in.Reminder
		if h.Reminder.Frequency == "" {
			h.Reminder.Frequency = "daily"
		}
	}
	if in.IsActive != nil {
		h.IsActive = *in.IsActive
	}

	if fields := validateHabit(h); len(fields) > 0 {
		return nil, apperror.Validation("invalid habit data", fields)
	}

	if err := s.habitRepo.Update(ctx, h); err != nil {
		return nil, err
	}

	s.notifier.Publish(userID, "habit:updated", h)
	return h, nil
}

// Delete removes the habit; its progress records cascade away with it.
func (s *HabitService) Delete(ctx context.Context, userID, id int) error {
	if err := s.habitRepo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("Habit deleted", zap.Int("user_id", userID), zap.Int("habit_id", id))
	s.notifier.Publish(userID, "habit:deleted", map[string]int{"id": id})
	return nil
}

func (s *HabitService) ToggleActive(ctx context.Context, userID, id int) (*model.Habit, error) {
	h, err := s.habitRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	h.IsActive = !h.IsActive
	if err := s.habitRepo.Update(ctx, h); err != nil {
		return nil, err
	}

	s.notifier.Publish(userID, "habit:toggled", h)
	return h, nil
}

func (s *HabitService) Stats(ctx context.Context, userID int) (*model.HabitStats, error) {
	return s.habitRepo.Stats(ctx, userID)
}

func validateHabit(h *model.Habit) map[string]string {
	fields := map[string]string{}

	if h.Name == "" {
		fields["name"] = "name is required"
	} else if len(h.Name) > MaxNameLength {
		fields["name"] = fmt.Sprintf("name must be %d characters or less", MaxNameLength)
	}
	if len(h.Description) > MaxDescriptionLength {
		fields["description"] = fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength)
	}
	if !slices.Contains(model.Categories, h.Category) {
		fields["category"] = "unknown category"
	}
	if !slices.Contains(model.Frequencies, h.Frequency) {
		fields["frequency"] = "frequency must be daily, weekly or monthly"
	}
	if h.TargetValue < 1 {
		fields["targetValue"] = "targetValue must be at least 1"
	}
	if len(h.Unit) > MaxUnitLength {
		fields["unit"] = fmt.Sprintf("unit must be %d characters or less", MaxUnitLength)
	}
	if !colorRe.MatchString(h.Color) {
		fields["color"] = "color must be a hex string like #2196f3"
	}

	if h.Reminder.Enabled {
		if !clockRe.MatchString(h.Reminder.StartTime) {
			fields["reminder.startTime"] = "startTime must be HH:MM"
		}
		if !clockRe.MatchString(h.Reminder.EndTime) {
			fields["reminder.endTime"] = "endTime must be HH:MM"
		}
	}
	if !slices.Contains(model.Frequencies, h.Reminder.Frequency) {
		fields["reminder.frequency"] = "frequency must be daily, weekly or monthly"
	}
	if len(h.Reminder.Message) > MaxReminderLength {
		fields["reminder.message"] = fmt.Sprintf("message must be %d characters or less", MaxReminderLength)
	}

	return fields
}
