package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourplan/internal/model"
)

func seedTournee(t *testing.T, m *Memory, code string) model.Tournee {
	t.Helper()
	start, _ := time.Parse("2006-01-02 15:04", "2025-08-04 06:00")
	tn := model.Tournee{
		Code:     code,
		DriverID: "D1", DriverName: "Alice Martin",
		VehicleID: "V1", VehicleType: "Frigo",
		Courses: []model.Course{{
			ID: code + "-c1", TourneeCode: code, Kind: model.CourseReg,
			Date: "2025-08-04", StartAt: start, EndAt: start.Add(4 * time.Hour),
			VehicleType: "Frigo", DriverID: "D1", VehicleID: "V1",
		}},
	}
	if err := m.UpsertTournee(context.Background(), tn); err != nil {
		t.Fatalf("UpsertTournee: %v", err)
	}
	got, err := m.GetTournee(context.Background(), code)
	if err != nil {
		t.Fatalf("GetTournee: %v", err)
	}
	return got
}

func TestMemoryTourneeVersioning(t *testing.T) {
	m := NewMemory()
	tn := seedTournee(t, m, "T1")
	if tn.Version != 1 {
		t.Fatalf("fresh tournée version = %d, want 1", tn.Version)
	}
	tn.DriverName = "Bruno Petit"
	if err := m.UpsertTournee(context.Background(), tn); err != nil {
		t.Fatalf("UpsertTournee: %v", err)
	}
	again, _ := m.GetTournee(context.Background(), "T1")
	if again.Version != 2 {
		t.Fatalf("version after update = %d, want 2", again.Version)
	}
}

func TestMemoryApplyReassignmentOptimistic(t *testing.T) {
	m := NewMemory()
	tn := seedTournee(t, m, "T1")

	updated := tn
	updated.DriverID = "D2"
	updated.DriverName = "Bruno Petit"
	res := model.ReassignmentResult{Success: true, UpdatedTournee: &updated}

	got, err := m.ApplyReassignment(context.Background(), res, tn.Version)
	if err != nil {
		t.Fatalf("ApplyReassignment: %v", err)
	}
	if got.Version != tn.Version+1 {
		t.Fatalf("version = %d, want %d", got.Version, tn.Version+1)
	}
	if got.DriverID != "D2" {
		t.Fatalf("driver = %q, want D2", got.DriverID)
	}

	// Re-applying against the stale version must be rejected.
	if _, err := m.ApplyReassignment(context.Background(), res, tn.Version); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale apply err = %v, want ErrVersionConflict", err)
	}

	missing := updated
	missing.Code = "T404"
	if _, err := m.ApplyReassignment(context.Background(), model.ReassignmentResult{UpdatedTournee: &missing}, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing apply err = %v, want ErrNotFound", err)
	}
}

func TestMemoryListTourneesByDate(t *testing.T) {
	m := NewMemory()
	seedTournee(t, m, "T1")
	seedTournee(t, m, "T2")

	all, err := m.ListTournees(context.Background(), "")
	if err != nil || len(all) != 2 {
		t.Fatalf("ListTournees all = %d (%v), want 2", len(all), err)
	}
	none, _ := m.ListTournees(context.Background(), "2025-08-05")
	if len(none) != 0 {
		t.Fatalf("ListTournees other day = %d, want 0", len(none))
	}
	courses, _ := m.ListCourses(context.Background(), "2025-08-04")
	if len(courses) != 2 {
		t.Fatalf("ListCourses = %d, want 2", len(courses))
	}
}

func TestMemoryDriverAvailability(t *testing.T) {
	m := NewMemory()
	if err := m.UpsertDriver(context.Background(), model.Driver{ID: "D1", Name: "Alice Martin", Type: "CM", Available: true}); err != nil {
		t.Fatalf("UpsertDriver: %v", err)
	}
	d, err := m.SetDriverAvailability(context.Background(), "D1", false)
	if err != nil {
		t.Fatalf("SetDriverAvailability: %v", err)
	}
	if d.Available {
		t.Fatalf("driver still available")
	}
	if _, err := m.SetDriverAvailability(context.Background(), "nope", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown driver err = %v, want ErrNotFound", err)
	}
}

func TestMemoryLeaveLifecycle(t *testing.T) {
	m := NewMemory()
	start, _ := time.Parse("2006-01-02", "2025-08-04")
	r, err := m.CreateLeaveRequest(context.Background(), model.LeaveRequest{DriverID: "D1", Zone: "Lyon", Skill: "CM", StartDate: start, EndDate: start.AddDate(0, 0, 6)})
	if err != nil {
		t.Fatalf("CreateLeaveRequest: %v", err)
	}
	if r.ID == "" || r.Status != model.LeavePending {
		t.Fatalf("unexpected created request: %+v", r)
	}

	if _, err := m.UpdateLeaveStatus(context.Background(), r.ID, model.LeaveAccepted); err != nil {
		t.Fatalf("UpdateLeaveStatus: %v", err)
	}
	list, _ := m.ListLeaveRequests(context.Background())
	if len(list) != 1 || list[0].Status != model.LeaveAccepted {
		t.Fatalf("unexpected list: %+v", list)
	}

	delta := 1
	imp := model.ImpactTight
	list[0].Delta = &delta
	list[0].Impact = &imp
	if err := m.SaveSimulation(context.Background(), list); err != nil {
		t.Fatalf("SaveSimulation: %v", err)
	}
	after, _ := m.ListLeaveRequests(context.Background())
	if after[0].Delta == nil || *after[0].Delta != 1 {
		t.Fatalf("simulation results not persisted: %+v", after[0])
	}
}

func TestMemorySubscriptionsAndDeliveries(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sub, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://ops.example/hook", Events: []string{"tournee.conflict"}, Secret: "s3cret"})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	star, _ := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://ops.example/all", Events: []string{"*"}})

	matched, _ := m.GetSubscriptionsForEvent(ctx, "tournee.conflict")
	if len(matched) != 2 {
		t.Fatalf("matched = %d, want 2 (exact + wildcard)", len(matched))
	}
	other, _ := m.GetSubscriptionsForEvent(ctx, "campaign.simulated")
	if len(other) != 1 || other[0].ID != star.ID {
		t.Fatalf("wildcard-only match failed: %+v", other)
	}

	id, err := m.EnqueueWebhook(ctx, sub.ID, "tournee.conflict", sub.URL, sub.Secret, []byte(`{"tournee":"T1"}`))
	if err != nil {
		t.Fatalf("EnqueueWebhook: %v", err)
	}
	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("due = %+v, want the enqueued delivery", due)
	}

	later := time.Now().Add(time.Minute)
	if err := m.MarkWebhookDelivery(ctx, id, false, &later, "boom", 500, 12); err != nil {
		t.Fatalf("MarkWebhookDelivery: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("backed-off delivery still due")
	}

	if err := m.FailWebhookDelivery(ctx, id, "gave up", 500, 8); err != nil {
		t.Fatalf("FailWebhookDelivery: %v", err)
	}
	failed, _ := m.ListWebhookDeliveries(ctx, "failed", 10)
	if len(failed) != 1 {
		t.Fatalf("failed list = %d, want 1", len(failed))
	}

	if err := m.DeleteSubscription(ctx, sub.ID); err != nil {
		t.Fatalf("DeleteSubscription: %v", err)
	}
	if err := m.DeleteSubscription(ctx, sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}
