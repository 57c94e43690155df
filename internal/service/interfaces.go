package service

import (
	"context"

	"habittracker/internal/model"
	"habittracker/internal/repository"
)

// Repository interfaces consumed by the services. The pgx-backed types in
// internal/repository satisfy them; tests substitute in-memory fakes.

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

type HabitRepository interface {
	Insert(ctx context.Context, h *model.Habit) error
	ListByUser(ctx context.Context, userID int) ([]model.Habit, error)
	FindByID(ctx context.Context, userID, id int) (*model.Habit, error)
	Update(ctx context.Context, h *model.Habit) error
	Delete(ctx context.Context, userID, id int) error
	CountActive(ctx context.Context, userID int) (int, error)
	Stats(ctx context.Context, userID int) (*model.HabitStats, error)
}

type ProgressRepository interface {
	Insert(ctx context.Context, p *model.Progress) error
	FindByID(ctx context.Context, userID, id int) (*model.Progress, error)
	FindByHabitAndDate(ctx context.Context, userID, habitID int, date string) (*model.Progress, error)
	Update(ctx context.Context, p *model.Progress) error
	Delete(ctx context.Context, userID, id int) error
	List(ctx context.Context, userID int, f repository.ProgressFilter) ([]model.Progress, error)
	CompletedCount(ctx context.Context, userID int, fromDate string) (int, error)
}

// Notifier pushes change events to the acting user's connected sessions.
// Implementations are fire-and-forget; services never treat a publish
// failure as an error.
type Notifier interface {
	Publish(userID int, event string, payload any)
}

// NopNotifier is used when no realtime hub is wired (tests, one-off tools).
type NopNotifier struct{}

func (NopNotifier) Publish(int, string, any) {}
