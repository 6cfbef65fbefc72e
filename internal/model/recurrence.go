package model

import "time"

// Pattern is the cadence unit of a recurring task.
type Pattern string

const (
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
	PatternYearly  Pattern = "yearly"
)

// String returns the string representation of the pattern.
func (p Pattern) String() string {
	return string(p)
}

// IsValid checks whether the pattern is a known value.
func (p Pattern) IsValid() bool {
	switch p {
	case PatternDaily, PatternWeekly, PatternMonthly, PatternYearly:
		return true
	}
	return false
}

// Weekday is a lowercase three-letter weekday tag, meaningful only for
// weekly patterns.
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

// IsValid checks whether the weekday tag is a known value.
func (w Weekday) IsValid() bool {
	switch w {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// WeekdayOf converts a time.Weekday to its tag.
func WeekdayOf(d time.Weekday) Weekday {
	switch d {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// ContainsWeekday reports whether the set includes the given tag.
func ContainsWeekday(set []Weekday, w Weekday) bool {
	for _, d := range set {
		if d == w {
			return true
		}
	}
	return false
}
