package model

import "time"

// DateLayout is the calendar-day format used everywhere a progress date
// appears. Zero-padded ISO dates order lexically, so string comparison is
// also chronological comparison.
const DateLayout = "2006-01-02"

type Progress struct {
	ID          int           `json:"id"`
	UserID      int           `json:"userId"`
	HabitID     int           `json:"habitId"`
	Date        string        `json:"date"`
	Value       float64       `json:"value"`
	Notes       string        `json:"notes"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completedAt"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Habit       *HabitSummary `json:"habit,omitempty"`
}

// PeriodStats holds the completed count and completion rate for one window.
// Rate is a nearest-percent integer: completed / (activeHabits * days).
type PeriodStats struct {
	Completed int `json:"completed"`
	Rate      int `json:"rate"`
}

// ProgressStats is the progress stats overview payload. AllTime carries a
// count only; its period length is unbounded so no rate is derivable.
type ProgressStats struct {
	Today        PeriodStats `json:"today"`
	Week         PeriodStats `json:"week"`
	Month        PeriodStats `json:"month"`
	AllTime      int         `json:"allTimeCompleted"`
	ActiveHabits int         `json:"activeHabits"`
}
