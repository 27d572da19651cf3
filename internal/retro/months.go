package retro

import "time"

// MonthsBetween returns the whole calendar-month difference from a to b:
// the number of month boundaries crossed, matching the SQL
// DATEDIFF(month, a, b) convention. Day-of-month is ignored, so
// Jan 31 -> Feb 1 counts as one month. The result is negative when a
// is after b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
