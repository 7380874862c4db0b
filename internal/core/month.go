package core

import (
	"strings"
	"time"
)

// AllTime selects every transaction regardless of date.
const AllTime Selector = "all"

type (
	// Month is a YYYY-MM token.
	Month string

	// Selector is either a Month token or AllTime.
	Selector string
)

// MonthOf truncates t to its month token in UTC.
func MonthOf(t time.Time) Month {
	return Month(t.UTC().Format("2006-01"))
}

// ISODate renders t the way transactions are exported and compared. The
// fraction is kept so an export parses back to the same instant.
func ISODate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseMonth validates a YYYY-MM token.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("2006-01", s); err != nil || len(s) != 7 {
		return "", Invalid(ErrInvalidMonth)
	}
	return Month(s), nil
}

// ParseSelector accepts "all" or a month token. An empty string selects the
// month containing now.
func ParseSelector(s string, now time.Time) (Selector, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Selector(MonthOf(now)), nil
	case strings.EqualFold(s, string(AllTime)):
		return AllTime, nil
	}
	m, err := ParseMonth(s)
	if err != nil {
		return "", err
	}
	return Selector(m), nil
}

func (s Selector) IsAll() bool { return s == AllTime }

// Month returns the selected month, or "" for AllTime.
func (s Selector) Month() Month {
	if s.IsAll() {
		return ""
	}
	return Month(s)
}

// Matches compares the month token as a string prefix of the ISO date.
// The comparison is timezone-naive on purpose: dates are stored in UTC.
func (s Selector) Matches(t time.Time) bool {
	if s.IsAll() {
		return true
	}
	return strings.HasPrefix(ISODate(t), string(s))
}

func (s Selector) String() string { return string(s) }
