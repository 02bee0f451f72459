package gamification

import (
	"time"

	"github.com/aclio/aclio/models"
)

const dayLayout = "2006-01-02"

// DayString formats t as a calendar day in loc.
func DayString(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dayLayout)
}

// YesterdayString is the calendar day before t in loc.
func YesterdayString(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d-1, 12, 0, 0, 0, loc).Format(dayLayout)
}

// AdvanceStreak applies the daily rule and reports whether anything changed.
// Days are compared as strings, so a timezone change between two calls can
// skip or repeat a calendar day.
func AdvanceStreak(s models.StreakData, today, yesterday string) (models.StreakData, bool) {
	switch s.LastActiveDateString {
	case today:
		return s, false
	case yesterday:
		s.Current++
	default:
		s.Current = 1
	}
	if s.Current > s.Best {
		s.Best = s.Current
	}
	s.LastActiveDateString = today
	return s, true
}
