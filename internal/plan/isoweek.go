package plan

import "time"

// WeekOf returns the ISO-8601 week number of a date (the Thursday of the week
// determines which year the week belongs to).
func WeekOf(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}

// WeekSpan lists the ISO week numbers covered by [start, end], inclusive and
// in order. Returns nil when end precedes start.
func WeekSpan(start, end time.Time) []int {
	if end.Before(start) {
		return nil
	}
	seen := map[int]bool{}
	var out []int
	for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
		if w := WeekOf(d); !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	if w := WeekOf(end); !seen[w] {
		out = append(out, w)
	}
	return out
}
