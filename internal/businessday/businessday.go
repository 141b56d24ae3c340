package businessday

import "time"

// IsBusinessDay reports whether t's date is neither a weekend nor a
// holiday in cal.
func IsBusinessDay(t time.Time, cal Calendar) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !cal.IsHoliday(DateOf(t))
}

// AddBusinessDays advances start by n business days. The start day
// itself is never counted; each following weekday that is not a holiday
// counts as one. Time of day and location are preserved. n <= 0 returns
// start unchanged.
func AddBusinessDays(start time.Time, n int, cal Calendar) time.Time {
	d := start
	for counted := 0; counted < n; {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d, cal) {
			counted++
		}
	}
	return d
}

// DaysBetween returns the signed number of calendar days from a's date
// to b's date, each taken in its own location. Weekends and holidays
// are not excluded.
func DaysBetween(a, b time.Time) int {
	from := DateOf(a).midnightUTC()
	to := DateOf(b).midnightUTC()
	return int(to.Sub(from).Hours() / 24)
}
