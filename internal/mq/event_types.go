package mq

// ReminderDuePayload is published with routing key "habit.reminder.due"
// when a habit's reminder window opens.
type ReminderDuePayload struct {
	HabitID int    `json:"habit_id"`
	UserID  int    `json:"user_id"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Date    string `json:"date"`
}
