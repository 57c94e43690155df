package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habittracker/internal/apperror"
	"habittracker/internal/model"
)

type HabitRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewHabitRepository(db *pgxpool.Pool, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{
		db:     db,
		logger: logger,
	}
}

const habitColumns = `
	id, user_id, name, description, category, frequency, target_value, unit, color,
	reminder_enabled, reminder_start, reminder_end, reminder_frequency, reminder_message,
	is_active, start_date, created_at, updated_at
`

func scanHabit(row pgx.Row) (*model.Habit, error) {
	var h model.Habit
	err := row.Scan(
		&h.ID, &h.UserID, &h.Name, &h.Description, &h.Category, &h.Frequency,
		&h.TargetValue, &h.Unit, &h.Color,
		&h.Reminder.Enabled, &h.Reminder.StartTime, &h.Reminder.EndTime,
		&h.Reminder.Frequency, &h.Reminder.Message,
		&h.IsActive, &h.StartDate, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HabitRepository) Insert(ctx context.Context, h *model.Habit) error {
	r.logger.Debug("Inserting habit",
		zap.Int("user_id", h.UserID),
		zap.String("name", h.Name),
	)

	query := `
        INSERT INTO habits (
            user_id, name, description, category, frequency, target_value, unit, color,
            reminder_enabled, reminder_start, reminder_end, reminder_frequency, reminder_message,
            is_active
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id, start_date, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		h.UserID, h.Name, h.Description, h.Category, h.Frequency,
		h.TargetValue, h.Unit, h.Color,
		h.Reminder.Enabled, h.Reminder.StartTime, h.Reminder.EndTime,
		h.Reminder.Frequency, h.Reminder.Message,
		h.IsActive,
	).Scan(&h.ID, &h.StartDate, &h.CreatedAt, &h.UpdatedAt)

	if err != nil {
		r.logger.Error("Failed to insert habit", zap.Error(err))
		return err
	}
	return nil
}

// ListByUser returns all of a user's habits, newest creation first.
func (r *HabitRepository) ListByUser(ctx context.Context, userID int) ([]model.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list habits", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	habits := []model.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			r.logger.Error("Failed to scan habit", zap.Error(err))
			return nil, err
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

// FindByID returns the habit only when owned by userID; a habit belonging
// to another user is indistinguishable from a missing one.
func (r *HabitRepository) FindByID(ctx context.Context, userID, id int) (*model.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND user_id = $2`

	h, err := scanHabit(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("habit not found")
		}
		return nil, err
	}
	return h, nil
}

func (r *HabitRepository) Update(ctx context.Context, h *model.Habit) error {
	query := `
        UPDATE habits SET
            name = $1, description = $2, category = $3, frequency = $4,
            target_value = $5, unit = $6, color = $7,
            reminder_enabled = $8, reminder_start = $9, reminder_end = $10,
            reminder_frequency = $11, reminder_message = $12,
            is_active = $13, updated_at = NOW()
        WHERE id = $14 AND user_id = $15
        RETURNING updated_at
    `
	err := r.db.QueryRow(ctx, query,
		h.Name, h.Description, h.Category, h.Frequency,
		h.TargetValue, h.Unit, h.Color,
		h.Reminder.Enabled, h.Reminder.StartTime, h.Reminder.EndTime,
		h.Reminder.Frequency, h.Reminder.Message,
		h.IsActive, h.ID, h.UserID,
	).Scan(&h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("habit not found")
		}
		r.logger.Error("Failed to update habit", zap.Int("id", h.ID), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes the habit. Progress rows cascade at the database level.
func (r *HabitRepository) Delete(ctx context.Context, userID, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete habit", zap.Int("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("habit not found")
	}
	return nil
}

// CountActive returns how many active habits the user has.
func (r *HabitRepository) CountActive(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM habits WHERE user_id = $1 AND is_active = TRUE`,
		userID,
	).Scan(&count)
	return count, err
}

// Stats aggregates the user's habit counts, including a per-category breakdown.
func (r *HabitRepository) Stats(ctx context.Context, userID int) (*model.HabitStats, error) {
	stats := &model.HabitStats{ByCategory: map[string]int{}}

	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active)
        FROM habits WHERE user_id = $1
    `, userID).Scan(&stats.TotalHabits, &stats.ActiveHabits)
	if err != nil {
		return nil, err
	}
	stats.InactiveHabits = stats.TotalHabits - stats.ActiveHabits

	rows, err := r.db.Query(ctx, `
        SELECT category, COUNT(*)
        FROM habits WHERE user_id = $1
        GROUP BY category
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}

// ListActiveWithReminders returns every active habit with reminders enabled,
// across all users. Used by the reminder scheduler.
func (r *HabitRepository) ListActiveWithReminders(ctx context.Context) ([]model.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE is_active = TRUE AND reminder_enabled = TRUE`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list habits with reminders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}
