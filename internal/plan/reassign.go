package plan

import (
	"fmt"

	"tourplan/internal/model"
)

// ReassignDriver produces a copy of the tournée's course list with every
// course reassigned to the new driver. The input slice and the tournées in
// all are never mutated; on conflict the returned AffectedCourses is empty
// and nothing has changed. courses must all belong to the same tournée.
func ReassignDriver(courses []model.Course, newDriverID, newDriverName string, all []model.Tournee, available []model.Driver) model.ReassignmentResult {
	if len(courses) == 0 {
		return model.ReassignmentResult{Success: true, Message: "no courses to reassign", AffectedCourses: []model.Course{}}
	}
	code := courses[0].TourneeCode
	if allAssignedTo(courses, func(c model.Course) string { return c.DriverID }, newDriverID) {
		return model.ReassignmentResult{
			Success:         true,
			Message:         fmt.Sprintf("driver %s is already assigned to tournée %s; nothing to do", newDriverName, code),
			AffectedCourses: []model.Course{},
		}
	}
	var driverType string
	if len(available) > 0 {
		found := false
		for _, d := range available {
			if d.ID == newDriverID {
				found = true
				driverType = d.Type
				break
			}
		}
		if !found {
			return model.ReassignmentResult{
				Success:         false,
				Message:         fmt.Sprintf("driver %s (%s) is not in the available pool", newDriverName, newDriverID),
				AffectedCourses: []model.Course{},
			}
		}
	}
	if msg := resourceConflict(courses, code, all, func(t model.Tournee) bool {
		return t.DriverID == newDriverID || t.SecondDriverID == newDriverID
	}, "driver "+newDriverName); msg != "" {
		return model.ReassignmentResult{Success: false, Message: msg, AffectedCourses: []model.Course{}}
	}

	updated := make([]model.Course, len(courses))
	for i, c := range courses {
		c.DriverID = newDriverID
		updated[i] = c
	}
	var ut *model.Tournee
	if t := findTournee(all, code); t != nil {
		cp := *t
		cp.Courses = updated
		cp.DriverID = newDriverID
		cp.DriverName = newDriverName
		if driverType != "" {
			cp.DriverType = driverType
		}
		ut = &cp
	}
	return model.ReassignmentResult{
		Success:         true,
		Message:         fmt.Sprintf("driver %s assigned to %d course(s) of tournée %s", newDriverName, len(updated), code),
		AffectedCourses: updated,
		UpdatedTournee:  ut,
	}
}

// ReassignVehicle is the vehicle counterpart of ReassignDriver.
func ReassignVehicle(courses []model.Course, newVehicleID, newRegistration string, all []model.Tournee, available []model.Vehicle) model.ReassignmentResult {
	if len(courses) == 0 {
		return model.ReassignmentResult{Success: true, Message: "no courses to reassign", AffectedCourses: []model.Course{}}
	}
	code := courses[0].TourneeCode
	if allAssignedTo(courses, func(c model.Course) string { return c.VehicleID }, newVehicleID) {
		return model.ReassignmentResult{
			Success:         true,
			Message:         fmt.Sprintf("vehicle %s is already assigned to tournée %s; nothing to do", newRegistration, code),
			AffectedCourses: []model.Course{},
		}
	}
	var vehicleType string
	if len(available) > 0 {
		found := false
		for _, v := range available {
			if v.ID == newVehicleID {
				found = true
				vehicleType = v.Type
				break
			}
		}
		if !found {
			return model.ReassignmentResult{
				Success:         false,
				Message:         fmt.Sprintf("vehicle %s (%s) is not in the available pool", newRegistration, newVehicleID),
				AffectedCourses: []model.Course{},
			}
		}
	}
	if msg := resourceConflict(courses, code, all, func(t model.Tournee) bool {
		return t.VehicleID == newVehicleID
	}, "vehicle "+newRegistration); msg != "" {
		return model.ReassignmentResult{Success: false, Message: msg, AffectedCourses: []model.Course{}}
	}

	updated := make([]model.Course, len(courses))
	for i, c := range courses {
		c.VehicleID = newVehicleID
		updated[i] = c
	}
	var ut *model.Tournee
	if t := findTournee(all, code); t != nil {
		cp := *t
		cp.Courses = updated
		cp.VehicleID = newVehicleID
		cp.VehicleRegistration = newRegistration
		if vehicleType != "" {
			cp.VehicleType = vehicleType
		}
		ut = &cp
	}
	return model.ReassignmentResult{
		Success:         true,
		Message:         fmt.Sprintf("vehicle %s assigned to %d course(s) of tournée %s", newRegistration, len(updated), code),
		AffectedCourses: updated,
		UpdatedTournee:  ut,
	}
}

func allAssignedTo(courses []model.Course, field func(model.Course) string, id string) bool {
	for _, c := range courses {
		if field(c) != id {
			return false
		}
	}
	return true
}

// resourceConflict scans every other tournée the resource is committed to and
// reports the first time-window collision with the candidate courses.
func resourceConflict(courses []model.Course, code string, all []model.Tournee, holds func(model.Tournee) bool, label string) string {
	for _, t := range all {
		if t.Code == code || !holds(t) {
			continue
		}
		for _, busy := range t.Courses {
			for _, c := range courses {
				if busy.Date == c.Date && busy.Overlaps(c) {
					return fmt.Sprintf("%s is already committed to tournée %s on %s between %s and %s, overlapping course %s (%s-%s)",
						label, t.Code, busy.Date,
						busy.StartAt.Format("15:04"), busy.EndAt.Format("15:04"),
						c.ID, c.StartAt.Format("15:04"), c.EndAt.Format("15:04"))
				}
			}
		}
	}
	return ""
}

func findTournee(all []model.Tournee, code string) *model.Tournee {
	for i := range all {
		if all[i].Code == code {
			return &all[i]
		}
	}
	return nil
}
