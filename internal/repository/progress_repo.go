package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habittracker/internal/apperror"
	"habittracker/internal/model"
)

type ProgressRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProgressRepository(db *pgxpool.Pool, logger *zap.Logger) *ProgressRepository {
	return &ProgressRepository{
		db:     db,
		logger: logger,
	}
}

// ProgressFilter narrows List results. Zero values mean "no constraint".
type ProgressFilter struct {
	HabitID   int
	Date      string
	StartDate string
	EndDate   string
	Limit     int
}

// Every read joins the parent habit so records come back annotated with the
// habit summary the clients render.
const progressSelect = `
	SELECT p.id, p.user_id, p.habit_id, p.date::text, p.value, p.notes,
	       p.completed, p.completed_at, p.created_at, p.updated_at,
	       h.id, h.name, h.category, h.color, h.target_value, h.unit
	FROM progress p
	JOIN habits h ON h.id = p.habit_id
`

func scanProgress(row pgx.Row) (*model.Progress, error) {
	var p model.Progress
	var hs model.HabitSummary
	err := row.Scan(
		&p.ID, &p.UserID, &p.HabitID, &p.Date, &p.Value, &p.Notes,
		&p.Completed, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt,
		&hs.ID, &hs.Name, &hs.Category, &hs.Color, &hs.TargetValue, &hs.Unit,
	)
	if err != nil {
		return nil, err
	}
	p.Habit = &hs
	return &p, nil
}

// Insert creates a progress record. A hit on the (user_id, habit_id, date)
// unique constraint is returned as apperror.ErrConflict; the service layer
// recovers the race by retrying as an update.
func (r *ProgressRepository) Insert(ctx context.Context, p *model.Progress) error {
	query := `
        INSERT INTO progress (user_id, habit_id, date, value, notes, completed, completed_at)
        VALUES ($1, $2, $3::date, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.UserID, p.HabitID, p.Date, p.Value, p.Notes, p.Completed, p.CompletedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("progress already exists for this habit and date")
		}
		r.logger.Error("Failed to insert progress",
			zap.Int("habit_id", p.HabitID),
			zap.String("date", p.Date),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *ProgressRepository) FindByID(ctx context.Context, userID, id int) (*model.Progress, error) {
	query := progressSelect + ` WHERE p.id = $1 AND p.user_id = $2`

	p, err := scanProgress(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("progress not found")
		}
		return nil, err
	}
	return p, nil
}

func (r *ProgressRepository) FindByHabitAndDate(ctx context.Context, userID, habitID int, date string) (*model.Progress, error) {
	query := progressSelect + ` WHERE p.user_id = $1 AND p.habit_id = $2 AND p.date = $3::date`

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID, habitID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("progress not found")
		}
		return nil, err
	}
	return p, nil
}

// Update rewrites the mutable fields, including the (habit_id, date) key.
// A unique violation (the new key collides with another record) maps to
// apperror.ErrConflict.
func (r *ProgressRepository) Update(ctx context.Context, p *model.Progress) error {
	query := `
        UPDATE progress SET
            habit_id = $1, date = $2::date, value = $3, notes = $4,
            completed = $5, completed_at = $6, updated_at = NOW()
        WHERE id = $7 AND user_id = $8
        RETURNING updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.HabitID, p.Date, p.Value, p.Notes, p.Completed, p.CompletedAt,
		p.ID, p.UserID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("progress not found")
		}
		if isUniqueViolation(err) {
			return apperror.Conflict("progress already exists for this habit and date")
		}
		r.logger.Error("Failed to update progress", zap.Int("id", p.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *ProgressRepository) Delete(ctx context.Context, userID, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM progress WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete progress", zap.Int("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("progress not found")
	}
	return nil
}

// List returns the user's progress records matching the filter, newest date
// first.
func (r *ProgressRepository) List(ctx context.Context, userID int, f ProgressFilter) ([]model.Progress, error) {
	query := progressSelect + ` WHERE p.user_id = $1`
	args := []any{userID}

	if f.HabitID != 0 {
		args = append(args, f.HabitID)
		query += fmt.Sprintf(" AND p.habit_id = $%d", len(args))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		query += fmt.Sprintf(" AND p.date = $%d::date", len(args))
	}
	if f.StartDate != "" {
		args = append(args, f.StartDate)
		query += fmt.Sprintf(" AND p.date >= $%d::date", len(args))
	}
	if f.EndDate != "" {
		args = append(args, f.EndDate)
		query += fmt.Sprintf(" AND p.date <= $%d::date", len(args))
	}

	query += " ORDER BY p.date DESC, p.created_at DESC"

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list progress", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	records := []model.Progress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			r.logger.Error("Failed to scan progress", zap.Error(err))
			return nil, err
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}

// CompletedCount counts completed records on or after fromDate. An empty
// fromDate counts all time.
func (r *ProgressRepository) CompletedCount(ctx context.Context, userID int, fromDate string) (int, error) {
	query := `SELECT COUNT(*) FROM progress WHERE user_id = $1 AND completed = TRUE`
	args := []any{userID}

	if fromDate != "" {
		args = append(args, fromDate)
		query += fmt.Sprintf(" AND date >= $%d::date", len(args))
	}

	var count int
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}
