package plan

import (
	"fmt"

	"tourplan/internal/model"
)

// CheckTourneeCoherence validates that a tournée's courses share consistent
// vehicle-type, driver-type and timing assumptions. An empty tournée is
// vacuously coherent. The check is pure: it never mutates its input and can
// be called repeatedly.
func CheckTourneeCoherence(t model.Tournee) model.CoherenceReport {
	issues := []string{}
	for _, c := range t.Courses {
		if t.VehicleType != "" && c.VehicleType != "" && c.VehicleType != t.VehicleType {
			issues = append(issues, fmt.Sprintf(
				"course %s requires vehicle type %s but tournée %s runs a %s",
				c.ID, c.VehicleType, t.Code, t.VehicleType))
		}
		if t.DriverType != "" && c.DriverType != "" && c.DriverType != t.DriverType {
			issues = append(issues, fmt.Sprintf(
				"course %s requires a %s driver but tournée %s is assigned a %s driver",
				c.ID, c.DriverType, t.Code, t.DriverType))
		}
	}
	for i := 0; i < len(t.Courses); i++ {
		for j := i + 1; j < len(t.Courses); j++ {
			a, b := t.Courses[i], t.Courses[j]
			if a.Overlaps(b) {
				issues = append(issues, fmt.Sprintf(
					"courses %s (%s-%s) and %s (%s-%s) overlap: one driver cannot run both",
					a.ID, a.StartAt.Format("15:04"), a.EndAt.Format("15:04"),
					b.ID, b.StartAt.Format("15:04"), b.EndAt.Format("15:04")))
			}
		}
	}
	return model.CoherenceReport{IsCoherent: len(issues) == 0, Issues: issues}
}
