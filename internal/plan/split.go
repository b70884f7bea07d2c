package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tourplan/internal/model"
)

// DefaultMaxDuty is the single-shift amplitude boundary used when no duty
// window is configured.
const DefaultMaxDuty = 12 * time.Hour

// AdviseSplit recommends splitting a tournée into sub-tournées when its
// courses span more than a single duty window, or when they mix resource
// requirements that no single reassignment could satisfy. Advisory only: the
// caller decides whether to act on it.
func AdviseSplit(t model.Tournee, maxDuty time.Duration) model.SplitAdvice {
	if len(t.Courses) < 2 {
		return model.SplitAdvice{}
	}
	if maxDuty <= 0 {
		maxDuty = DefaultMaxDuty
	}
	start, end := t.Span()
	if span := end.Sub(start); span > maxDuty {
		return model.SplitAdvice{
			ShouldSplit: true,
			Reason: fmt.Sprintf("tournée %s spans %s, beyond the %s duty window of a single driver",
				t.Code, span, maxDuty),
		}
	}
	if types := distinctRequirements(t.Courses, func(c model.Course) string { return c.VehicleType }); len(types) > 1 {
		return model.SplitAdvice{
			ShouldSplit: true,
			Reason: fmt.Sprintf("tournée %s mixes vehicle-type requirements (%s): no single vehicle can serve all courses",
				t.Code, strings.Join(types, ", ")),
		}
	}
	if types := distinctRequirements(t.Courses, func(c model.Course) string { return c.DriverType }); len(types) > 1 {
		return model.SplitAdvice{
			ShouldSplit: true,
			Reason: fmt.Sprintf("tournée %s mixes driver-type requirements (%s): no single driver can serve all courses",
				t.Code, strings.Join(types, ", ")),
		}
	}
	return model.SplitAdvice{}
}

func distinctRequirements(courses []model.Course, field func(model.Course) string) []string {
	seen := map[string]bool{}
	for _, c := range courses {
		if v := field(c); v != "" {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
