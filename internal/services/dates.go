package services

import "time"

// CalendarDate returns the calendar day value falls on in location, pinned to
// UTC midnight. Every plan date the engine stores or compares uses this form.
func CalendarDate(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	year, month, day := value.In(location).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// normalizeDate drops the clock part of value without shifting its day.
func normalizeDate(value time.Time) time.Time {
	year, month, day := value.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func normalizeDatePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := normalizeDate(*value)
	return &normalized
}

func daysBetween(from time.Time, until time.Time) int {
	return int(normalizeDate(until).Sub(normalizeDate(from)).Hours() / 24)
}

func formatDate(value time.Time) string {
	return value.Format("2006-01-02")
}
