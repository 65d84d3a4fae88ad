package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/FP2003/discord-birthday-bot/internal/config"
)

// Validation errors surfaced to members as a rejection message.
var (
	ErrInvalidDate    = errors.New(config.ErrInvalidDate)
	ErrYearOutOfRange = errors.New(config.ErrYearOutOfRange)
)

// IsValidDate reports whether (month, day[, year]) is a real calendar date.
// Without a year the leap reference year is used, so 29 February is accepted.
// time.Date normalises overflow (31 April -> 1 May), so a round-trip mismatch means invalid.
func IsValidDate(month, day int, year *int) bool {
	y := config.DefaultLeapYear
	if year != nil {
		y = *year
	}
	t := time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == month && t.Day() == day
}

// ValidateBirthday checks a birthday submitted at reference time now.
// The year, when present, must lie in [config.MinBirthYear, now.Year()].
func ValidateBirthday(b Birthday, now time.Time) error {
	if !IsValidDate(b.Month, b.Day, b.Year) {
		return ErrInvalidDate
	}
	if b.Year != nil && (*b.Year < config.MinBirthYear || *b.Year > now.Year()) {
		return fmt.Errorf("%w: %d", ErrYearOutOfRange, *b.Year)
	}
	return nil
}

// FormatDate renders "<day> <MonthName>" or "<day> <MonthName>, <year>".
func FormatDate(month, day int, year *int) string {
	name := time.Month(month).String()
	if year == nil {
		return fmt.Sprintf(config.FormatDateShort, day, name)
	}
	return fmt.Sprintf(config.FormatDateLong, day, name, *year)
}

// CalculateAge returns the member's current age at reference time now.
// The boolean is false when the year of birth is unknown.
func CalculateAge(b Birthday, now time.Time) (int, bool) {
	if b.Year == nil {
		return 0, false
	}
	age := now.Year() - *b.Year
	if beforeInYear(now.Month(), now.Day(), time.Month(b.Month), b.Day) {
		age--
	}
	return age, true
}

// beforeInYear reports whether (m1, d1) comes strictly before (m2, d2) within a year.
func beforeInYear(m1 time.Month, d1 int, m2 time.Month, d2 int) bool {
	return m1 < m2 || (m1 == m2 && d1 < d2)
}

// DaysUntil returns the number of whole days from ref to the next (month, day).
// Today yields 0. Both ends are taken at midnight of their calendar day in UTC,
// so DST transitions in ref's zone never shift the count.
func DaysUntil(month, day int, ref time.Time) int {
	y, m, d := ref.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	candidate := time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if candidate.Before(today) {
		candidate = time.Date(y+1, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}
	return int(candidate.Sub(today) / (24 * time.Hour))
}

// NextOccurrence determines the next birthday date relative to 'now' and the age turned then.
// Go's time.Date normalizes Feb 29 to March 1st in non-leap years.
func NextOccurrence(now time.Time, b Birthday) (time.Time, int) {
	currentYear := now.Year()
	loc := now.Location()

	candidate := time.Date(currentYear, time.Month(b.Month), b.Day, 0, 0, 0, 0, loc)

	// Check if this candidate date is in the past (strictly before the start of today).
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if candidate.Before(todayStart) {
		candidate = time.Date(currentYear+1, time.Month(b.Month), b.Day, 0, 0, 0, 0, loc)
	}

	ageNext := 0
	if b.Year != nil {
		ageNext = candidate.Year() - *b.Year
	}
	return candidate, ageNext
}

// IsBirthdayToday compares (month, day) with the reference date.
// A 29 February birthday only matches in leap years.
func IsBirthdayToday(b Birthday, now time.Time) bool {
	return int(now.Month()) == b.Month && now.Day() == b.Day
}
