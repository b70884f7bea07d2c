package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourplan/internal/model"
	"tourplan/internal/plan"
	"tourplan/internal/store"
	"tourplan/internal/webhooks"
)

func newTestServer() *Server {
	m := store.NewMemory()
	return &Server{
		Store:      m,
		Pub:        webhooks.NewPublisher(m),
		Broker:     NewBroker(),
		Thresholds: plan.DefaultThresholds(),
		Scoring:    plan.DefaultScoringWeights(),
	}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func frigoTournee(t *testing.T, code string) model.Tournee {
	return model.Tournee{
		Code:        code,
		DriverID:    "D1",
		DriverName:  "Alice Martin",
		DriverType:  "CM",
		VehicleID:   "V1",
		VehicleType: "Frigo",
		Courses: []model.Course{
			{
				ID: code + "-c1", TourneeCode: code, Kind: model.CourseReg, Date: "2025-08-04",
				StartAt: mustTime(t, "2025-08-04 06:00"), EndAt: mustTime(t, "2025-08-04 10:00"),
				VehicleType: "Frigo", DriverType: "CM", DriverID: "D1", VehicleID: "V1",
			},
			{
				ID: code + "-c2", TourneeCode: code, Kind: model.CourseReg, Date: "2025-08-04",
				StartAt: mustTime(t, "2025-08-04 10:30"), EndAt: mustTime(t, "2025-08-04 14:00"),
				VehicleType: "Frigo", DriverType: "CM", DriverID: "D1", VehicleID: "V1",
			},
		},
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestTourneeLifecycle(t *testing.T) {
	s := newTestServer()

	w := postJSON(t, s.TourneesHandler, "/v1/tournees", frigoTournee(t, "T1"))
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created model.Tournee
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.Version != 1 {
		t.Fatalf("fresh version = %d, want 1", created.Version)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/tournees/T1", nil)
	w2 := httptest.NewRecorder()
	s.TourneeByCodeHandler(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("get status = %d", w2.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/tournees/T1/coherence", nil)
	w3 := httptest.NewRecorder()
	s.TourneeByCodeHandler(w3, req)
	var rep model.CoherenceReport
	_ = json.Unmarshal(w3.Body.Bytes(), &rep)
	if !rep.IsCoherent {
		t.Fatalf("expected coherent tournée, issues: %v", rep.Issues)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/tournees/T404", nil)
	w4 := httptest.NewRecorder()
	s.TourneeByCodeHandler(w4, req)
	if w4.Code != http.StatusNotFound {
		t.Fatalf("missing tournée status = %d, want 404", w4.Code)
	}
}

func TestReassignDriverEndpoint(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()
	if err := s.Store.UpsertTournee(ctx, frigoTournee(t, "T1")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = s.Store.UpsertDriver(ctx, model.Driver{ID: "D1", Name: "Alice Martin", Type: "CM", Available: true})
	_ = s.Store.UpsertDriver(ctx, model.Driver{ID: "D2", Name: "Bruno Petit", Type: "CM", Available: true})

	body := map[string]any{"driverId": "D2", "driverName": "Bruno Petit", "version": 1}
	w := postJSON(t, func(w http.ResponseWriter, r *http.Request) {
		s.TourneeByCodeHandler(w, r)
	}, "/v1/tournees/T1/reassign-driver", body)
	if w.Code != http.StatusOK {
		t.Fatalf("reassign status = %d: %s", w.Code, w.Body.String())
	}
	var res model.ReassignmentResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Success || len(res.AffectedCourses) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.UpdatedTournee == nil || res.UpdatedTournee.Version != 2 {
		t.Fatalf("version not bumped: %+v", res.UpdatedTournee)
	}

	// Retrying with the stale version is rejected.
	w2 := postJSON(t, func(w http.ResponseWriter, r *http.Request) {
		s.TourneeByCodeHandler(w, r)
	}, "/v1/tournees/T1/reassign-driver", map[string]any{"driverId": "D1", "driverName": "Alice Martin", "version": 1})
	if w2.Code != http.StatusConflict {
		t.Fatalf("stale version status = %d, want 409", w2.Code)
	}

	// Unavailable drivers are not eligible.
	_ = s.Store.UpsertDriver(ctx, model.Driver{ID: "D3", Name: "Chloé Durand", Type: "CM", Available: false})
	w3 := postJSON(t, func(w http.ResponseWriter, r *http.Request) {
		s.TourneeByCodeHandler(w, r)
	}, "/v1/tournees/T1/reassign-driver", map[string]any{"driverId": "D3", "driverName": "Chloé Durand", "version": 2})
	if w3.Code != http.StatusConflict {
		t.Fatalf("unavailable driver status = %d, want 409", w3.Code)
	}
}

func TestReassignVehicleConflictLeavesStateAlone(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()
	if err := s.Store.UpsertTournee(ctx, frigoTournee(t, "T1")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// T3 holds V2 from 09:00 to 11:00, overlapping T1's first course tail.
	other := model.Tournee{
		Code: "T3", VehicleID: "V2", VehicleType: "Frigo",
		Courses: []model.Course{{
			ID: "T3-c1", TourneeCode: "T3", Kind: model.CourseReg, Date: "2025-08-04",
			StartAt: mustTime(t, "2025-08-04 09:00"), EndAt: mustTime(t, "2025-08-04 11:00"),
			VehicleType: "Frigo", VehicleID: "V2",
		}},
	}
	if err := s.Store.UpsertTournee(ctx, other); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = s.Store.UpsertVehicle(ctx, model.Vehicle{ID: "V2", Registration: "GH-456-IJ", Type: "Frigo", Available: true})

	w := postJSON(t, func(w http.ResponseWriter, r *http.Request) {
		s.TourneeByCodeHandler(w, r)
	}, "/v1/tournees/T1/reassign-vehicle", map[string]any{"vehicleId": "V2", "registration": "GH-456-IJ", "version": 1})
	if w.Code != http.StatusConflict {
		t.Fatalf("conflict status = %d: %s", w.Code, w.Body.String())
	}

	after, err := s.Store.GetTournee(ctx, "T1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.VehicleID != "V1" || after.Version != 1 {
		t.Fatalf("tournée mutated on conflict: %+v", after)
	}
}

func TestReassignPublishesBoardEvents(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()
	_ = s.Store.UpsertTournee(ctx, frigoTournee(t, "T1"))
	_ = s.Store.UpsertDriver(ctx, model.Driver{ID: "D2", Name: "Bruno Petit", Type: "CM", Available: true})

	ch := s.Broker.Subscribe("2025-08-04")
	defer s.Broker.Unsubscribe("2025-08-04", ch)

	w := postJSON(t, func(w http.ResponseWriter, r *http.Request) {
		s.TourneeByCodeHandler(w, r)
	}, "/v1/tournees/T1/reassign-driver", map[string]any{"driverId": "D2", "driverName": "Bruno Petit", "version": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("reassign status = %d", w.Code)
	}

	select {
	case evt := <-ch:
		if evt.Type != "tournee.reassigned" {
			t.Fatalf("event type = %q", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("no board event published")
	}
}

func TestPlanningHealthEndpoint(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()
	_ = s.Store.UpsertTournee(ctx, frigoTournee(t, "T1"))
	_ = s.Store.UpsertDriver(ctx, model.Driver{ID: "D1", Name: "Alice Martin", Type: "CM", Available: false})
	_ = s.Store.UpsertVehicle(ctx, model.Vehicle{ID: "V1", Registration: "AB-123-CD", Type: "Frigo", Available: true})
	_ = s.Store.RecordPlanChange(ctx, "2025-08-04", model.PlanChange{CourseID: "T1-c1", Kind: model.ChangeUpdate})

	req := httptest.NewRequest(http.MethodGet, "/v1/planning/health?date=2025-08-04", nil)
	w := httptest.NewRecorder()
	s.PlanningHealthHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d: %s", w.Code, w.Body.String())
	}
	var m model.PlanningHealthMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.CoursesTotal != 2 {
		t.Fatalf("coursesTotal = %d, want 2", m.CoursesTotal)
	}
	if len(m.AbsentDrivers) != 1 || m.AbsentDrivers[0].Count != 1 {
		t.Fatalf("absences: %+v", m.AbsentDrivers)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/planning/health?date=not-a-date", nil)
	w2 := httptest.NewRecorder()
	s.PlanningHealthHandler(w2, req)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d, want 400", w2.Code)
	}
}

func TestCampaignSimulateEndpoint(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()
	_ = s.Store.ReplaceCapacityNeeds(ctx, []model.CapacityNeed{{Week: 32, Zone: "Lyon", Skill: "CM", Capacity: 2}})

	day, _ := time.Parse("2006-01-02", "2025-08-04") // ISO week 32
	mk := func(driver string, status model.LeaveStatus) model.LeaveRequest {
		return model.LeaveRequest{DriverID: driver, Zone: "Lyon", Skill: "CM", StartDate: day, EndDate: day.AddDate(0, 0, 4), Status: status}
	}
	if w := postJSON(t, s.LeaveRequestsHandler, "/v1/campaign/leave-requests", mk("D1", "")); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	if _, err := s.Store.CreateLeaveRequest(ctx, mk("D2", model.LeaveAccepted)); err != nil {
		t.Fatalf("seed accepted: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/campaign/simulate", nil)
	w := httptest.NewRecorder()
	s.SimulateHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("simulate status = %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Items []model.LeaveRequest `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var pending *model.LeaveRequest
	for i := range out.Items {
		if out.Items[i].Status == model.LeavePending {
			pending = &out.Items[i]
		}
	}
	if pending == nil || pending.Delta == nil {
		t.Fatalf("pending request not scored: %+v", out.Items)
	}
	// Capacity 2, one accepted, minus the requester itself.
	if *pending.Delta != 0 || *pending.Impact != model.ImpactTight {
		t.Fatalf("delta = %d impact = %s, want 0/Tight", *pending.Delta, *pending.Impact)
	}

	// Results are persisted for later reads.
	list, _ := s.Store.ListLeaveRequests(ctx)
	for _, r := range list {
		if r.Status == model.LeavePending && r.Delta == nil {
			t.Fatalf("simulation not saved: %+v", r)
		}
	}
}

func TestSubscriptionEndpoints(t *testing.T) {
	s := newTestServer()

	if w := postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", model.SubscriptionRequest{URL: "ftp://bad", Events: []string{"*"}}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad url status = %d, want 400", w.Code)
	}
	w := postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", model.SubscriptionRequest{URL: "https://ops.example/hook", Events: []string{"tournee.reassigned"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var sub model.Subscription
	_ = json.Unmarshal(w.Body.Bytes(), &sub)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/subscriptions/%s", sub.ID), nil)
	w2 := httptest.NewRecorder()
	s.SubscriptionByIDHandler(w2, req)
	if w2.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w2.Code)
	}
}

func TestSplitAdviceEndpoint(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()
	long := frigoTournee(t, "T9")
	long.Courses[1].StartAt = mustTime(t, "2025-08-04 16:00")
	long.Courses[1].EndAt = mustTime(t, "2025-08-04 20:00")
	_ = s.Store.UpsertTournee(ctx, long)

	req := httptest.NewRequest(http.MethodGet, "/v1/tournees/T9/split-advice", nil)
	w := httptest.NewRecorder()
	s.TourneeByCodeHandler(w, req)
	var adv model.SplitAdvice
	_ = json.Unmarshal(w.Body.Bytes(), &adv)
	if !adv.ShouldSplit {
		t.Fatalf("14h amplitude should advise a split: %+v", adv)
	}

	// A looser duty window turns the advice off.
	req = httptest.NewRequest(http.MethodGet, "/v1/tournees/T9/split-advice?maxDuty=15h", nil)
	w2 := httptest.NewRecorder()
	s.TourneeByCodeHandler(w2, req)
	_ = json.Unmarshal(w2.Body.Bytes(), &adv)
	if adv.ShouldSplit {
		t.Fatalf("15h window should not advise a split: %+v", adv)
	}
}
