package plan

import (
	"sort"
	"time"

	"tourplan/internal/model"
)

// Thresholds configures the health aggregator's alert boundaries.
type Thresholds struct {
	MaxDailyDuty       time.Duration `yaml:"maxDailyDuty"`
	MinDailyDuty       time.Duration `yaml:"minDailyDuty"`
	ExpiryHorizonWeeks int           `yaml:"expiryHorizonWeeks"`
}

// DefaultThresholds returns the production defaults: a 12h single-shift
// amplitude ceiling, a 4h floor, and a four-week contract expiry horizon.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxDailyDuty: DefaultMaxDuty, MinDailyDuty: 4 * time.Hour, ExpiryHorizonWeeks: 4}
}

// HealthSnapshot is the consistent read the caller takes before computing the
// health tiles. The aggregator never mutates it.
type HealthSnapshot struct {
	Date     string `json:"date"` // plan day, YYYY-MM-DD
	Courses  []model.Course
	Drivers  []model.Driver
	Vehicles []model.Vehicle
	Changes  []model.PlanChange
}

// ComputeHealth derives the dispatch health tiles from a snapshot. It is a
// pure function: identical snapshots yield identical metrics.
func ComputeHealth(snap HealthSnapshot, th Thresholds) model.PlanningHealthMetrics {
	if th.MaxDailyDuty <= 0 {
		th = DefaultThresholds()
	}
	var m model.PlanningHealthMetrics
	m.CoursesTotal = len(snap.Courses)
	for _, c := range snap.Courses {
		switch {
		case c.Status() == model.Assigned:
			m.CoursesPlaced++
		case c.Sensitive:
			m.SensitivesToPlace++
		}
		if c.Status() != model.Assigned {
			switch c.Kind {
			case model.CourseSup:
				m.CoursesSupToPlace++
			case model.CourseReg:
				m.CoursesRegToPlace++
			}
		}
	}
	if m.CoursesTotal > 0 {
		m.PlacementPct = 100 * float64(m.CoursesPlaced) / float64(m.CoursesTotal)
	}

	m.AbsentDrivers = absencesByType(snap)
	m.UnavailableVehicles = vehicleOutage(snap)
	m.Modifications = modificationCounts(snap)
	m.AlertsByLevel = deriveAlerts(snap)
	m.DriversOutOfAmplitude = amplitudeCounts(snap, th)
	m.PrestationsExpiring4Weeks = expiringPrestations(snap, th.ExpiryHorizonWeeks)
	return m
}

// absencesByType groups absent drivers by driver type. A course is impacted
// when its assigned driver is absent and no replacement has been set.
func absencesByType(snap HealthSnapshot) []model.AbsencesByType {
	absent := map[string]bool{}
	byType := map[string]*model.AbsencesByType{}
	for _, d := range snap.Drivers {
		if d.Available {
			continue
		}
		absent[d.ID] = true
		g := byType[d.Type]
		if g == nil {
			g = &model.AbsencesByType{DriverType: d.Type}
			byType[d.Type] = g
		}
		g.Count++
	}
	for _, c := range snap.Courses {
		if c.DriverID == "" || !absent[c.DriverID] {
			continue
		}
		for _, d := range snap.Drivers {
			if d.ID == c.DriverID {
				byType[d.Type].ImpactedCourses++
				break
			}
		}
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	out := make([]model.AbsencesByType, 0, len(types))
	for _, t := range types {
		out = append(out, *byType[t])
	}
	return out
}

func vehicleOutage(snap HealthSnapshot) model.ResourceOutage {
	down := map[string]bool{}
	var out model.ResourceOutage
	for _, v := range snap.Vehicles {
		if !v.Available {
			down[v.ID] = true
			out.Count++
		}
	}
	for _, c := range snap.Courses {
		if c.VehicleID != "" && down[c.VehicleID] {
			out.ImpactedCourses++
		}
	}
	return out
}

// modificationCounts tallies plan changes against regular prestations only.
func modificationCounts(snap HealthSnapshot) model.ModificationCounts {
	kinds := map[string]model.CourseKind{}
	for _, c := range snap.Courses {
		kinds[c.ID] = c.Kind
	}
	var out model.ModificationCounts
	for _, ch := range snap.Changes {
		if kinds[ch.CourseID] == model.CourseSup {
			continue
		}
		if ch.Kind == model.ChangeCancellation {
			out.Cancellations++
		} else {
			out.Other++
		}
	}
	return out
}

// deriveAlerts scans the snapshot for scheduling alerts. Double-booked
// resources are critical, certification or driver-type mismatches are
// warnings, partial assignments are informational.
func deriveAlerts(snap HealthSnapshot) model.AlertCounts {
	var out model.AlertCounts
	skills := map[string]map[string]bool{}
	types := map[string]string{}
	for _, d := range snap.Drivers {
		set := map[string]bool{}
		for _, s := range d.Skills {
			set[s] = true
		}
		skills[d.ID] = set
		types[d.ID] = d.Type
	}
	for i := 0; i < len(snap.Courses); i++ {
		a := snap.Courses[i]
		for j := i + 1; j < len(snap.Courses); j++ {
			b := snap.Courses[j]
			if !a.Overlaps(b) {
				continue
			}
			if a.DriverID != "" && a.DriverID == b.DriverID {
				out.Critical++
			}
			if a.VehicleID != "" && a.VehicleID == b.VehicleID {
				out.Critical++
			}
		}
		if a.DriverID != "" {
			if t, ok := types[a.DriverID]; ok && a.DriverType != "" && t != a.DriverType {
				out.Warning++
			}
			if set, ok := skills[a.DriverID]; ok {
				for _, s := range a.RequiredSkills {
					if !set[s] {
						out.Warning++
						break
					}
				}
			}
		}
		if a.Status() == model.Partial {
			out.Info++
		}
	}
	return out
}

// amplitudeCounts measures each driver's committed amplitude (first start to
// last end) against the configured duty bounds.
func amplitudeCounts(snap HealthSnapshot, th Thresholds) model.AmplitudeCounts {
	type span struct{ start, end time.Time }
	spans := map[string]*span{}
	for _, c := range snap.Courses {
		if c.DriverID == "" {
			continue
		}
		s := spans[c.DriverID]
		if s == nil {
			s = &span{start: c.StartAt, end: c.EndAt}
			spans[c.DriverID] = s
			continue
		}
		if c.StartAt.Before(s.start) {
			s.start = c.StartAt
		}
		if c.EndAt.After(s.end) {
			s.end = c.EndAt
		}
	}
	var out model.AmplitudeCounts
	for _, s := range spans {
		amp := s.end.Sub(s.start)
		switch {
		case amp > th.MaxDailyDuty:
			out.AboveMax++
		case amp > 0 && amp < th.MinDailyDuty:
			out.BelowMin++
		}
	}
	return out
}

// expiringPrestations counts regular prestations whose contract ends within
// the horizon, measured from the snapshot date.
func expiringPrestations(snap HealthSnapshot, horizonWeeks int) int {
	if horizonWeeks <= 0 {
		horizonWeeks = 4
	}
	from, err := time.Parse("2006-01-02", snap.Date)
	if err != nil {
		return 0
	}
	until := from.AddDate(0, 0, 7*horizonWeeks)
	count := 0
	for _, c := range snap.Courses {
		if c.Kind != model.CourseReg || c.ContractEnd == "" {
			continue
		}
		end, err := time.Parse("2006-01-02", c.ContractEnd)
		if err != nil {
			continue
		}
		if !end.Before(from) && !end.After(until) {
			count++
		}
	}
	return count
}
