package plan

import (
	"reflect"
	"testing"

	"tourplan/internal/model"
)

func healthSnapshot() HealthSnapshot {
	c1 := mkCourse("c1", "T1", "2026-03-02", "06:00", "10:00")
	c1.DriverID = "D1"
	c1.VehicleID = "V1"
	c1.Kind = model.CourseReg
	c1.ContractEnd = "2026-03-20"

	c2 := mkCourse("c2", "T1", "2026-03-02", "10:30", "14:00")
	c2.Kind = model.CourseSup
	c2.Sensitive = true

	c3 := mkCourse("c3", "T2", "2026-03-02", "08:00", "12:00")
	c3.DriverID = "D2" // absent driver, no replacement
	c3.VehicleID = "V2"

	return HealthSnapshot{
		Date:    "2026-03-02",
		Courses: []model.Course{c1, c2, c3},
		Drivers: []model.Driver{
			{ID: "D1", Name: "Alice Martin", Type: "CM", Available: true},
			{ID: "D2", Name: "Bruno Keller", Type: "CM", Available: false},
			{ID: "D3", Name: "Chloé Diouf", Type: "SPL", Available: false},
		},
		Vehicles: []model.Vehicle{
			{ID: "V1", Registration: "AB-123-CD", Type: "Frigo", Available: true},
			{ID: "V2", Registration: "EF-456-GH", Type: "Frigo", Available: false},
		},
		Changes: []model.PlanChange{
			{CourseID: "c1", Kind: model.ChangeCancellation},
			{CourseID: "c1", Kind: model.ChangeUpdate},
			{CourseID: "c2", Kind: model.ChangeCancellation}, // sup course, excluded
		},
	}
}

func TestComputeHealthCounts(t *testing.T) {
	m := ComputeHealth(healthSnapshot(), DefaultThresholds())

	if m.CoursesTotal != 3 || m.CoursesPlaced != 2 {
		t.Fatalf("placed %d/%d, want 2/3", m.CoursesPlaced, m.CoursesTotal)
	}
	if m.SensitivesToPlace != 1 {
		t.Fatalf("sensitivesToPlace = %d, want 1", m.SensitivesToPlace)
	}
	if m.CoursesSupToPlace != 1 || m.CoursesRegToPlace != 0 {
		t.Fatalf("sup/reg to place = %d/%d, want 1/0", m.CoursesSupToPlace, m.CoursesRegToPlace)
	}
	if m.PrestationsExpiring4Weeks != 1 {
		t.Fatalf("prestationsExpiring4Weeks = %d, want 1", m.PrestationsExpiring4Weeks)
	}
	if m.Modifications.Cancellations != 1 || m.Modifications.Other != 1 {
		t.Fatalf("modifications = %+v, want 1 cancellation / 1 other", m.Modifications)
	}
}

func TestComputeHealthAbsences(t *testing.T) {
	m := ComputeHealth(healthSnapshot(), DefaultThresholds())

	want := []model.AbsencesByType{
		{DriverType: "CM", Count: 1, ImpactedCourses: 1},
		{DriverType: "SPL", Count: 1, ImpactedCourses: 0},
	}
	if !reflect.DeepEqual(m.AbsentDrivers, want) {
		t.Fatalf("absentDrivers = %+v, want %+v", m.AbsentDrivers, want)
	}
	if m.UnavailableVehicles.Count != 1 || m.UnavailableVehicles.ImpactedCourses != 1 {
		t.Fatalf("unavailableVehicles = %+v", m.UnavailableVehicles)
	}
}

func TestComputeHealthDeterministic(t *testing.T) {
	snap := healthSnapshot()
	a := ComputeHealth(snap, DefaultThresholds())
	b := ComputeHealth(snap, DefaultThresholds())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("aggregator is not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestComputeHealthAlerts(t *testing.T) {
	snap := healthSnapshot()
	// Double-book D1 on an overlapping window: critical alert.
	clash := mkCourse("c4", "T3", "2026-03-02", "09:00", "11:00")
	clash.DriverID = "D1"
	// Certification mismatch: required skill D1 does not hold.
	clash.RequiredSkills = []string{"ADR"}
	snap.Courses = append(snap.Courses, clash)

	m := ComputeHealth(snap, DefaultThresholds())
	if m.AlertsByLevel.Critical == 0 {
		t.Fatal("overlapping assignment should raise a critical alert")
	}
	if m.AlertsByLevel.Warning == 0 {
		t.Fatal("certification mismatch should raise a warning")
	}
	if m.AlertsByLevel.Info == 0 {
		t.Fatal("partial assignment should raise an info alert")
	}
}

func TestComputeHealthAmplitude(t *testing.T) {
	early := mkCourse("a1", "T1", "2026-03-02", "05:00", "07:00")
	early.DriverID = "D1"
	late := mkCourse("a2", "T1", "2026-03-02", "19:00", "21:00")
	late.DriverID = "D1"
	short := mkCourse("a3", "T2", "2026-03-02", "09:00", "10:00")
	short.DriverID = "D2"

	snap := HealthSnapshot{Date: "2026-03-02", Courses: []model.Course{early, late, short}}
	m := ComputeHealth(snap, DefaultThresholds())
	if m.DriversOutOfAmplitude.AboveMax != 1 {
		t.Fatalf("aboveMax = %d, want 1 (16h amplitude)", m.DriversOutOfAmplitude.AboveMax)
	}
	if m.DriversOutOfAmplitude.BelowMin != 1 {
		t.Fatalf("belowMin = %d, want 1 (1h amplitude)", m.DriversOutOfAmplitude.BelowMin)
	}
}

func TestComputeHealthEmptySnapshot(t *testing.T) {
	m := ComputeHealth(HealthSnapshot{Date: "2026-03-02"}, DefaultThresholds())
	if m.CoursesTotal != 0 || m.PlacementPct != 0 {
		t.Fatalf("empty snapshot should be all zeros: %+v", m)
	}
}
