package workhours

import (
	"fmt"
	"strings"
)

// Period tags a login relative to the organization's work-hours window.
// The zero value means no period is known.
type Period string

const (
	Morning   Period = "Morning"
	WorkHours Period = "WorkHours"
	Evening   Period = "Evening"
)

// Valid reports whether p is one of the three known labels.
func (p Period) Valid() bool {
	switch p {
	case Morning, WorkHours, Evening:
		return true
	}
	return false
}

func (p Period) String() string { return string(p) }

// ParsePeriod accepts the exact backend labels. An empty string yields the
// zero Period without error.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	p := Period(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}
