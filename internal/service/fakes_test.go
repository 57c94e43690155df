package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"habittracker/internal/apperror"
	"habittracker/internal/model"
	"habittracker/internal/repository"
)

// In-memory fakes for the repository interfaces. They reproduce the
// behaviors the services depend on, notably the unique-key conflict on
// (user, habit, date).

type fakeUserRepo struct {
	users  map[int]*model.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]*model.User{}, nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return apperror.Conflict("username or email already taken")
		}
	}
	u.ID = f.nextID
	f.nextID++
	u.CreatedAt = time.Now()
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == identifier || u.Email == strings.ToLower(identifier) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id int) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type fakeHabitRepo struct {
	habits map[int]*model.Habit
	nextID int
}

func newFakeHabitRepo() *fakeHabitRepo {
	return &fakeHabitRepo{habits: map[int]*model.Habit{}, nextID: 1}
}

func (f *fakeHabitRepo) Insert(ctx context.Context, h *model.Habit) error {
	h.ID = f.nextID
	f.nextID++
	now := time.Now()
	h.StartDate = now
	h.CreatedAt = now
	h.UpdatedAt = now
	copied := *h
	f.habits[h.ID] = &copied
	return nil
}

func (f *fakeHabitRepo) ListByUser(ctx context.Context, userID int) ([]model.Habit, error) {
	out := []model.Habit{}
	for _, h := range f.habits {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeHabitRepo) FindByID(ctx context.Context, userID, id int) (*model.Habit, error) {
	h, ok := f.habits[id]
	if !ok || h.UserID != userID {
		return nil, apperror.NotFound("habit not found")
	}
	copied := *h
	return &copied, nil
}

func (f *fakeHabitRepo) Update(ctx context.Context, h *model.Habit) error {
	existing, ok := f.habits[h.ID]
	if !ok || existing.UserID != h.UserID {
		return apperror.NotFound("habit not found")
	}
	h.UpdatedAt = time.Now()
	copied := *h
	f.habits[h.ID] = &copied
	return nil
}

func (f *fakeHabitRepo) Delete(ctx context.Context, userID, id int) error {
	h, ok := f.habits[id]
	if !ok || h.UserID != userID {
		return apperror.NotFound("habit not found")
	}
	delete(f.habits, id)
	return nil
}

func (f *fakeHabitRepo) CountActive(ctx context.Context, userID int) (int, error) {
	count := 0
	for _, h := range f.habits {
		if h.UserID == userID && h.IsActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeHabitRepo) Stats(ctx context.Context, userID int) (*model.HabitStats, error) {
	stats := &model.HabitStats{ByCategory: map[string]int{}}
	for _, h := range f.habits {
		if h.UserID != userID {
			continue
		}
		stats.TotalHabits++
		if h.IsActive {
			stats.ActiveHabits++
		}
		stats.ByCategory[h.Category]++
	}
	stats.InactiveHabits = stats.TotalHabits - stats.ActiveHabits
	return stats, nil
}

type fakeProgressRepo struct {
	records map[int]*model.Progress
	nextID  int

	// beforeInsert, when set, runs just before the uniqueness check in
	// Insert. Tests use it to sneak in a competing record and provoke the
	// constraint-violation race.
	beforeInsert func()
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: map[int]*model.Progress{}, nextID: 1}
}

func (f *fakeProgressRepo) put(p *model.Progress) {
	copied := *p
	copied.Habit = nil
	f.records[p.ID] = &copied
}

func (f *fakeProgressRepo) findKey(userID, habitID int, date string, excludeID int) *model.Progress {
	for _, p := range f.records {
		if p.UserID == userID && p.HabitID == habitID && p.Date == date && p.ID != excludeID {
			return p
		}
	}
	return nil
}

func (f *fakeProgressRepo) Insert(ctx context.Context, p *model.Progress) error {
	if f.beforeInsert != nil {
		hook := f.beforeInsert
		f.beforeInsert = nil
		hook()
	}
	if f.findKey(p.UserID, p.HabitID, p.Date, 0) != nil {
		return apperror.Conflict("progress already exists for this habit and date")
	}
	p.ID = f.nextID
	f.nextID++
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	f.put(p)
	return nil
}

func (f *fakeProgressRepo) FindByID(ctx context.Context, userID, id int) (*model.Progress, error) {
	p, ok := f.records[id]
	if !ok || p.UserID != userID {
		return nil, apperror.NotFound("progress not found")
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProgressRepo) FindByHabitAndDate(ctx context.Context, userID, habitID int, date string) (*model.Progress, error) {
	if p := f.findKey(userID, habitID, date, 0); p != nil {
		copied := *p
		return &copied, nil
	}
	return nil, apperror.NotFound("progress not found")
}

func (f *fakeProgressRepo) Update(ctx context.Context, p *model.Progress) error {
	existing, ok := f.records[p.ID]
	if !ok || existing.UserID != p.UserID {
		return apperror.NotFound("progress not found")
	}
	if f.findKey(p.UserID, p.HabitID, p.Date, p.ID) != nil {
		return apperror.Conflict("progress already exists for this habit and date")
	}
	p.UpdatedAt = time.Now()
	f.put(p)
	return nil
}

func (f *fakeProgressRepo) Delete(ctx context.Context, userID, id int) error {
	p, ok := f.records[id]
	if !ok || p.UserID != userID {
		return apperror.NotFound("progress not found")
	}
	delete(f.records, id)
	return nil
}

func (f *fakeProgressRepo) List(ctx context.Context, userID int, filter repository.ProgressFilter) ([]model.Progress, error) {
	out := []model.Progress{}
	for _, p := range f.records {
		if p.UserID != userID {
			continue
		}
		if filter.HabitID != 0 && p.HabitID != filter.HabitID {
			continue
		}
		if filter.Date != "" && p.Date != filter.Date {
			continue
		}
		if filter.StartDate != "" && p.Date < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && p.Date > filter.EndDate {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeProgressRepo) CompletedCount(ctx context.Context, userID int, fromDate string) (int, error) {
	count := 0
	for _, p := range f.records {
		if p.UserID == userID && p.Completed && (fromDate == "" || p.Date >= fromDate) {
			count++
		}
	}
	return count, nil
}

type publishedEvent struct {
	UserID  int
	Event   string
	Payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(userID int, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{UserID: userID, Event: event, Payload: payload})
}

func (n *recordingNotifier) eventNames() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, len(n.events))
	for i, e := range n.events {
		names[i] = e.Event
	}
	return names
}
