package model

import "time"

// Habit categories and frequencies accepted by the API.
var (
	Categories = []string{"general", "health", "fitness", "productivity", "learning", "social", "finance", "creativity"}

	Frequencies = []string{"daily", "weekly", "monthly"}
)

const DefaultCategory = "general"

// Reminder is the per-habit reminder configuration. StartTime and EndTime
// are HH:MM strings; the scheduler fires when the current time falls inside
// the window.
type Reminder struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Frequency string `json:"frequency"`
	Message   string `json:"message"`
}

type Habit struct {
	ID          int       `json:"id"`
	UserID      int       `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Frequency   string    `json:"frequency"`
	TargetValue int       `json:"targetValue"`
	Unit        string    `json:"unit"`
	Color       string    `json:"color"`
	Reminder    Reminder  `json:"reminder"`
	IsActive    bool      `json:"isActive"`
	StartDate   time.Time `json:"startDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Summary is the subset of habit fields attached to progress records.
func (h *Habit) Summary() *HabitSummary {
	return &HabitSummary{
		ID:          h.ID,
		Name:        h.Name,
		Category:    h.Category,
		Color:       h.Color,
		TargetValue: h.TargetValue,
		Unit:        h.Unit,
	}
}

type HabitSummary struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	TargetValue int    `json:"targetValue"`
	Unit        string `json:"unit"`
}

// HabitStats is the habit stats overview payload.
type HabitStats struct {
	TotalHabits    int            `json:"totalHabits"`
	ActiveHabits   int            `json:"activeHabits"`
	InactiveHabits int            `json:"inactiveHabits"`
	ByCategory     map[string]int `json:"byCategory"`
}
