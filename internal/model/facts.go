package model

import "time"

// ISODate is the calendar date layout used in prompts.
const ISODate = "2006-01-02"

// Facts are the calendar values derived from a validated input at submission time.
type Facts struct {
	BirthDate      time.Time
	BirthDateISO   string
	BirthYear      int
	CurrentDateISO string
}

// DeriveFacts computes the birth date, birth year and current date for a prompt.
// Both dates are read as calendar dates in now's location.
func DeriveFacts(in UserInput, now time.Time) (Facts, error) {
	birth, err := in.BirthDate(now.Location())
	if err != nil {
		return Facts{}, err
	}

	return Facts{
		BirthDate:      birth,
		BirthDateISO:   birth.Format(ISODate),
		BirthYear:      birth.Year(),
		CurrentDateISO: now.Format(ISODate),
	}, nil
}
