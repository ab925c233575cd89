// Package profile defines the user and child records the core reads from
// the record store. Both are owned by external services; the core only
// consumes them by id.
package profile

import "time"

// User is the acting parent account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Child is the child a task or conversation is about.
type Child struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AgeYears returns the child's age in whole years at the given time, or 0
// when no birth date is recorded.
func (c *Child) AgeYears(now time.Time) int {
	if c.BirthDate.IsZero() {
		return 0
	}
	years := now.Year() - c.BirthDate.Year()
	if now.YearDay() < c.BirthDate.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
