package handler_test

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"habittracker/internal/apperror"
	"habittracker/internal/handler"
	"habittracker/internal/httpserver"
	"habittracker/internal/model"
	"habittracker/internal/repository"
)

const testSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestEngine wires the handlers under test behind the real auth
// middleware, without the availability gate that needs a live database.
func newTestEngine(authH *handler.AuthHandler, progressH *handler.ProgressHandler) *gin.Engine {
	r := gin.New()

	r.POST("/api/auth/register", authH.Register)
	r.POST("/api/auth/login", authH.Login)

	api := r.Group("/api", httpserver.AuthMiddleware(testSecret))
	api.GET("/auth/me", authH.Me)
	api.POST("/progress", progressH.Upsert)
	api.PUT("/progress/:id", progressH.Update)

	return r
}

// In-memory repositories backing the end-to-end handler tests.

type memUserRepo struct {
	nextID int
	users  []*model.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{nextID: 1} }

func (r *memUserRepo) Create(ctx context.Context, u *model.User) error {
	for _, existing := range r.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return apperror.Conflict("username or email already taken")
		}
	}
	u.ID = r.nextID
	r.nextID++
	copied := *u
	r.users = append(r.users, &copied)
	return nil
}

func (r *memUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == identifier || strings.EqualFold(u.Email, identifier) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (r *memUserRepo) FindByID(ctx context.Context, id int) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (r *memUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

type memHabitRepo struct {
	habits map[int]*model.Habit
}

func newMemHabitRepo() *memHabitRepo { return &memHabitRepo{habits: map[int]*model.Habit{}} }

func (r *memHabitRepo) Insert(ctx context.Context, h *model.Habit) error {
	h.ID = len(r.habits) + 1
	copied := *h
	r.habits[h.ID] = &copied
	return nil
}

func (r *memHabitRepo) ListByUser(ctx context.Context, userID int) ([]model.Habit, error) {
	var out []model.Habit
	for _, h := range r.habits {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (r *memHabitRepo) FindByID(ctx context.Context, userID, id int) (*model.Habit, error) {
	h, ok := r.habits[id]
	if !ok || h.UserID != userID {
		return nil, apperror.NotFound("habit not found")
	}
	copied := *h
	return &copied, nil
}

func (r *memHabitRepo) Update(ctx context.Context, h *model.Habit) error {
	if _, ok := r.habits[h.ID]; !ok {
		return apperror.NotFound("habit not found")
	}
	copied := *h
	r.habits[h.ID] = &copied
	return nil
}

func (r *memHabitRepo) Delete(ctx context.Context, userID, id int) error {
	if _, err := r.FindByID(ctx, userID, id); err != nil {
		return err
	}
	delete(r.habits, id)
	return nil
}

func (r *memHabitRepo) CountActive(ctx context.Context, userID int) (int, error) {
	count := 0
	for _, h := range r.habits {
		if h.UserID == userID && h.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *memHabitRepo) Stats(ctx context.Context, userID int) (*model.HabitStats, error) {
	stats := &model.HabitStats{ByCategory: map[string]int{}}
	for _, h := range r.habits {
		if h.UserID != userID {
			continue
		}
		stats.TotalHabits++
		if h.IsActive {
			stats.ActiveHabits++
		} else {
			stats.InactiveHabits++
		}
		stats.ByCategory[h.Category]++
	}
	return stats, nil
}

type memProgressRepo struct {
	nextID  int
	records map[int]*model.Progress
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{nextID: 1, records: map[int]*model.Progress{}}
}

func (r *memProgressRepo) Insert(ctx context.Context, p *model.Progress) error {
	for _, existing := range r.records {
		if existing.UserID == p.UserID && existing.HabitID == p.HabitID && existing.Date == p.Date {
			return apperror.Conflict("progress already exists for this habit and date")
		}
	}
	p.ID = r.nextID
	r.nextID++
	copied := *p
	r.records[p.ID] = &copied
	return nil
}

func (r *memProgressRepo) FindByID(ctx context.Context, userID, id int) (*model.Progress, error) {
	p, ok := r.records[id]
	if !ok || p.UserID != userID {
		return nil, apperror.NotFound("progress not found")
	}
	copied := *p
	return &copied, nil
}

func (r *memProgressRepo) FindByHabitAndDate(ctx context.Context, userID, habitID int, date string) (*model.Progress, error) {
	for _, p := range r.records {
		if p.UserID == userID && p.HabitID == habitID && p.Date == date {
			copied := *p
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("progress not found")
}

func (r *memProgressRepo) Update(ctx context.Context, p *model.Progress) error {
	if _, ok := r.records[p.ID]; !ok {
		return apperror.NotFound("progress not found")
	}
	copied := *p
	r.records[p.ID] = &copied
	return nil
}

func (r *memProgressRepo) Delete(ctx context.Context, userID, id int) error {
	if _, err := r.FindByID(ctx, userID, id); err != nil {
		return err
	}
	delete(r.records, id)
	return nil
}

func (r *memProgressRepo) List(ctx context.Context, userID int, f repository.ProgressFilter) ([]model.Progress, error) {
	var out []model.Progress
	for _, p := range r.records {
		if p.UserID != userID {
			continue
		}
		if f.HabitID != 0 && p.HabitID != f.HabitID {
			continue
		}
		if f.Date != "" && p.Date != f.Date {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *memProgressRepo) CompletedCount(ctx context.Context, userID int, fromDate string) (int, error) {
	count := 0
	for _, p := range r.records {
		if p.UserID == userID && p.Completed && (fromDate == "" || p.Date >= fromDate) {
			count++
		}
	}
	return count, nil
}
