// Package model defines domain models and data structures.
package model

import (
	"strconv"
	"strings"
	"time"
)

// MinBirthYear is the earliest accepted year of birth.
const MinBirthYear = 1900

// UserInput holds the form fields submitted by the user.
type UserInput struct {
	Name    string `json:"name"`
	Day     string `json:"day"`
	Month   string `json:"month"`
	Year    string `json:"year"`
	Country string `json:"country"`
}

// Normalize returns a copy with surrounding whitespace removed from every field.
func (in UserInput) Normalize() UserInput {
	return UserInput{
		Name:    strings.TrimSpace(in.Name),
		Day:     strings.TrimSpace(in.Day),
		Month:   strings.TrimSpace(in.Month),
		Year:    strings.TrimSpace(in.Year),
		Country: strings.TrimSpace(in.Country),
	}
}

// Validate checks the input against the calendar date of now.
// It returns ErrMissingField before looking at the date, and a *DateError otherwise.
func (in UserInput) Validate(now time.Time) error {
	n := in.Normalize()
	if n.Name == "" || n.Day == "" || n.Month == "" || n.Year == "" || n.Country == "" {
		return ErrMissingField
	}

	birth, err := n.BirthDate(now.Location())
	if err != nil {
		return err
	}

	if birth.After(calendarDate(now)) {
		return &DateError{Field: "date", Value: birth.Format(ISODate), Reason: "is in the future"}
	}

	return nil
}

// BirthDate composes day, month and year into midnight of that date in loc.
// It does not check the date against the current date.
func (in UserInput) BirthDate(loc *time.Location) (time.Time, error) {
	n := in.Normalize()

	day, err := parseDigits("day", n.Day, 1, 2)
	if err != nil {
		return time.Time{}, err
	}

	month, err := parseDigits("month", n.Month, 1, 2)
	if err != nil {
		return time.Time{}, err
	}

	year, err := parseDigits("year", n.Year, 4, 4)
	if err != nil {
		return time.Time{}, err
	}

	if month < 1 || month > 12 {
		return time.Time{}, &DateError{Field: "month", Value: n.Month, Reason: "must be between 1 and 12"}
	}

	if year < MinBirthYear {
		return time.Time{}, &DateError{Field: "year", Value: n.Year, Reason: "must be 1900 or later"}
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow (31 February becomes 3 March).
	if day < 1 || date.Day() != day || date.Month() != time.Month(month) {
		return time.Time{}, &DateError{Field: "day", Value: n.Day, Reason: "does not exist in that month"}
	}

	return date, nil
}

func parseDigits(field, value string, minLen, maxLen int) (int, error) {
	if len(value) < minLen || len(value) > maxLen {
		return 0, &DateError{Field: field, Value: value, Reason: "has the wrong number of digits"}
	}

	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, &DateError{Field: field, Value: value, Reason: "must contain digits only"}
		}
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &DateError{Field: field, Value: value, Reason: "is not a number"}
	}

	return n, nil
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
