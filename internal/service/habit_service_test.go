package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habittracker/internal/apperror"
	"habittracker/internal/model"
)

func newTestHabitService() (*HabitService, *fakeHabitRepo, *recordingNotifier) {
	repo := newFakeHabitRepo()
	notifier := &recordingNotifier{}
	return NewHabitService(repo, notifier, zap.NewNop()), repo, notifier
}

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func boolPtr(v bool) *bool       { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestCreateHabitDefaults(t *testing.T) {
	svc, _, notifier := newTestHabitService()

	h, err := svc.Create(context.Background(), 1, HabitInput{Name: "Drink Water"})
	require.NoError(t, err)

	assert.Equal(t, "Drink Water", h.Name)
	assert.Equal(t, model.DefaultCategory, h.Category)
	assert.Equal(t, "daily", h.Frequency)
	assert.Equal(t, 1, h.TargetValue)
	assert.Equal(t, DefaultColor, h.Color)
	assert.True(t, h.IsActive)
	assert.Equal(t, []string{"habit:created"}, notifier.eventNames())
}

func TestCreateHabitValidation(t *testing.T) {
	svc, _, _ := newTestHabitService()

	tests := []struct {
		name  string
		in    HabitInput
		field string
	}{
		{"empty name", HabitInput{}, "name"},
		{"name too long", HabitInput{Name: strings.Repeat("x", 101)}, "name"},
		{"bad category", HabitInput{Name: "a", Category: "sports"}, "category"},
		{"bad frequency", HabitInput{Name: "a", Frequency: "hourly"}, "frequency"},
		{"zero target", HabitInput{Name: "a", TargetValue: intPtr(0)}, "targetValue"},
		{"unit too long", HabitInput{Name: "a", Unit: strings.Repeat("u", 21)}, "unit"},
		{"bad color", HabitInput{Name: "a", Color: "blue"}, "color"},
		{"reminder without times", HabitInput{Name: "a", Reminder: &model.Reminder{Enabled: true}}, "reminder.startTime"},
		{"reminder message too long", HabitInput{Name: "a", Reminder: &model.Reminder{Message: strings.Repeat("m", 201)}}, "reminder.message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Contains(t, apperror.FieldsOf(err), tt.field)
		})
	}
}

func TestUpdateHabitPartial(t *testing.T) {
	svc, _, _ := newTestHabitService()

	h, err := svc.Create(context.Background(), 1, HabitInput{
		Name:        "Read",
		Description: "Read books",
		TargetValue: intPtr(30),
		Unit:        "pages",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), 1, h.ID, HabitUpdate{Name: strPtr("Read More")})
	require.NoError(t, err)

	assert.Equal(t, "Read More", updated.Name)
	assert.Equal(t, "Read books", updated.Description, "absent fields keep prior values")
	assert.Equal(t, 30, updated.TargetValue)
	assert.Equal(t, "pages", updated.Unit)

	// Explicitly clearing a field is allowed.
	updated, err = svc.Update(context.Background(), 1, h.ID, HabitUpdate{Description: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Description)

	// Deactivation via update.
	updated, err = svc.Update(context.Background(), 1, h.ID, HabitUpdate{IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestUpdateHabitNotFound(t *testing.T) {
	svc, _, _ := newTestHabitService()

	_, err := svc.Update(context.Background(), 1, 42, HabitUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateHabitOwnership(t *testing.T) {
	svc, _, _ := newTestHabitService()

	h, err := svc.Create(context.Background(), 1, HabitInput{Name: "Run"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), 2, h.ID, HabitUpdate{Name: strPtr("steal")})
	assert.ErrorIs(t, err, apperror.ErrNotFound, "another user's habit looks absent")
}

func TestToggleActive(t *testing.T) {
	svc, _, notifier := newTestHabitService()

	h, err := svc.Create(context.Background(), 1, HabitInput{Name: "Run"})
	require.NoError(t, err)
	require.True(t, h.IsActive)

	toggled, err := svc.ToggleActive(context.Background(), 1, h.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = svc.ToggleActive(context.Background(), 1, h.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	assert.Equal(t, []string{"habit:created", "habit:toggled", "habit:toggled"}, notifier.eventNames())
}

func TestDeleteHabit(t *testing.T) {
	svc, _, notifier := newTestHabitService()

	h, err := svc.Create(context.Background(), 1, HabitInput{Name: "Run"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1, h.ID))

	_, err = svc.Get(context.Background(), 1, h.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), 1, h.ID), apperror.ErrNotFound)
	assert.Equal(t, []string{"habit:created", "habit:deleted"}, notifier.eventNames())
}

func TestHabitStats(t *testing.T) {
	svc, _, _ := newTestHabitService()
	ctx := context.Background()

	// Zero habits: all counts zero, no errors.
	stats, err := svc.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalHabits)
	assert.Equal(t, 0, stats.ActiveHabits)

	h1, err := svc.Create(ctx, 1, HabitInput{Name: "Run", Category: "fitness"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, HabitInput{Name: "Read", Category: "learning"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, HabitInput{Name: "Swim", Category: "fitness"})
	require.NoError(t, err)
	_, err = svc.ToggleActive(ctx, 1, h1.ID)
	require.NoError(t, err)

	stats, err = svc.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalHabits)
	assert.Equal(t, 2, stats.ActiveHabits)
	assert.Equal(t, 1, stats.InactiveHabits)
	assert.Equal(t, map[string]int{"fitness": 2, "learning": 1}, stats.ByCategory)
}
