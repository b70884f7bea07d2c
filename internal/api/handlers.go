package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tourplan/internal/buildinfo"
	"tourplan/internal/directory"
	"tourplan/internal/metrics"
	"tourplan/internal/model"
	"tourplan/internal/plan"
	"tourplan/internal/store"
	"tourplan/internal/webhooks"
)

// TourneesHandler handles GET/POST /v1/tournees
func (s *Server) TourneesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		date := r.URL.Query().Get("date")
		items, err := s.Store.ListTournees(r.Context(), date)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List tournees failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var t model.Tournee
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateTournee(&t); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid tournee", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.UpsertTournee(r.Context(), t); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Upsert failed", err.Error(), r.URL.Path)
			return
		}
		saved, err := s.Store.GetTournee(r.Context(), t.Code)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Read back failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// TourneeByCodeHandler handles /v1/tournees/{code} and its sub-resources:
// /coherence, /split-advice, /reassign-driver, /reassign-vehicle.
func (s *Server) TourneeByCodeHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/tournees/")
	parts := strings.SplitN(rest, "/", 2)
	code := parts[0]
	if code == "" {
		writeProblem(w, http.StatusBadRequest, "Missing code", "tournee code required", r.URL.Path)
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	switch action {
	case "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t, err := s.Store.GetTournee(r.Context(), code)
		if err != nil {
			s.storeProblem(w, r, err, "Get tournee failed")
			return
		}
		writeJSON(w, http.StatusOK, t)
	case "coherence":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t, err := s.Store.GetTournee(r.Context(), code)
		if err != nil {
			s.storeProblem(w, r, err, "Get tournee failed")
			return
		}
		writeJSON(w, http.StatusOK, plan.CheckTourneeCoherence(t))
	case "split-advice":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t, err := s.Store.GetTournee(r.Context(), code)
		if err != nil {
			s.storeProblem(w, r, err, "Get tournee failed")
			return
		}
		maxDuty := s.Thresholds.MaxDailyDuty
		if v := r.URL.Query().Get("maxDuty"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid maxDuty", err.Error(), r.URL.Path)
				return
			}
			maxDuty = d
		}
		writeJSON(w, http.StatusOK, plan.AdviseSplit(t, maxDuty))
	case "reassign-driver":
		s.reassignHandler(w, r, code, true)
	case "reassign-vehicle":
		s.reassignHandler(w, r, code, false)
	default:
		writeProblem(w, http.StatusNotFound, "Unknown action", action, r.URL.Path)
	}
}

type reassignRequest struct {
	CourseIDs    []string `json:"courseIds"`
	DriverID     string   `json:"driverId"`
	DriverName   string   `json:"driverName"`
	VehicleID    string   `json:"vehicleId"`
	Registration string   `json:"registration"`
	Version      int      `json:"version"`
}

func (s *Server) reassignHandler(w http.ResponseWriter, r *http.Request, code string, driver bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateReassign(&req, driver); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid reassignment", err.Error(), r.URL.Path)
		return
	}
	t, err := s.Store.GetTournee(r.Context(), code)
	if err != nil {
		s.storeProblem(w, r, err, "Get tournee failed")
		return
	}
	if req.Version != 0 && req.Version != t.Version {
		writeProblem(w, http.StatusConflict, "Version conflict",
			fmt.Sprintf("tournee %s is at version %d, request targeted %d", code, t.Version, req.Version), r.URL.Path)
		return
	}
	courses := selectCourses(t, req.CourseIDs)
	all, err := s.Store.ListTournees(r.Context(), "")
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List tournees failed", err.Error(), r.URL.Path)
		return
	}

	var res model.ReassignmentResult
	resource := "vehicle"
	if driver {
		resource = "driver"
		pool, err := s.Store.ListDrivers(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List drivers failed", err.Error(), r.URL.Path)
			return
		}
		dir := directory.New(pool, nil)
		name := req.DriverName
		if name == "" {
			if d, ok := dir.Driver(req.DriverID); ok {
				name = d.Name
			}
		}
		res = plan.ReassignDriver(courses, req.DriverID, name, all, dir.AvailableDrivers())
	} else {
		pool, err := s.Store.ListVehicles(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List vehicles failed", err.Error(), r.URL.Path)
			return
		}
		dir := directory.New(nil, pool)
		reg := req.Registration
		if reg == "" {
			if v, ok := dir.Vehicle(req.VehicleID); ok {
				reg = v.Registration
			}
		}
		res = plan.ReassignVehicle(courses, req.VehicleID, reg, all, dir.AvailableVehicles())
	}

	if !res.Success {
		metrics.Reassignments.WithLabelValues(resource, "conflict").Inc()
		s.Pub.Emit(r.Context(), webhooks.EventTourneeConflict, map[string]any{"tournee": code, "message": res.Message})
		writeJSON(w, http.StatusConflict, res)
		return
	}
	if res.UpdatedTournee == nil {
		// no-op result (already assigned or empty selection)
		metrics.Reassignments.WithLabelValues(resource, "noop").Inc()
		writeJSON(w, http.StatusOK, res)
		return
	}
	merged := mergeReassigned(t, res)
	applyRes := res
	applyRes.UpdatedTournee = &merged
	saved, err := s.Store.ApplyReassignment(r.Context(), applyRes, t.Version)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			writeProblem(w, http.StatusConflict, "Version conflict", "tournee changed during reassignment, retry with a fresh read", r.URL.Path)
			return
		}
		s.storeProblem(w, r, err, "Apply reassignment failed")
		return
	}
	res.UpdatedTournee = &saved
	metrics.Reassignments.WithLabelValues(resource, "applied").Inc()
	for _, c := range res.AffectedCourses {
		_ = s.Store.RecordPlanChange(r.Context(), c.Date, model.PlanChange{CourseID: c.ID, Kind: model.ChangeUpdate})
		s.Broker.Publish(c.Date, BoardEvent{Type: "tournee.reassigned", Data: map[string]any{
			"tournee": code, "courseId": c.ID, "resource": resource,
		}})
	}
	s.Pub.Emit(r.Context(), webhooks.EventTourneeReassigned, map[string]any{
		"tournee": code, "resource": resource, "courses": len(res.AffectedCourses), "version": saved.Version,
	})
	writeJSON(w, http.StatusOK, res)
}

// DriversHandler handles GET/POST /v1/drivers
func (s *Server) DriversHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListDrivers(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List drivers failed", err.Error(), r.URL.Path)
			return
		}
		if r.URL.Query().Get("available") == "true" {
			items = directory.New(items, nil).AvailableDrivers()
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var d model.Driver
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.UpsertDriver(r.Context(), d); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Upsert driver failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, d)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DriverByIDHandler handles POST /v1/drivers/{id}/availability
func (s *Server) DriverByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/drivers/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] != "availability" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	d, err := s.Store.SetDriverAvailability(r.Context(), parts[0], req.Available)
	if err != nil {
		s.storeProblem(w, r, err, "Set driver availability failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// VehiclesHandler handles GET/POST /v1/vehicles
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListVehicles(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List vehicles failed", err.Error(), r.URL.Path)
			return
		}
		if r.URL.Query().Get("available") == "true" {
			items = directory.New(nil, items).AvailableVehicles()
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var v model.Vehicle
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.UpsertVehicle(r.Context(), v); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Upsert vehicle failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, v)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// VehicleByIDHandler handles POST /v1/vehicles/{id}/availability
func (s *Server) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/vehicles/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] != "availability" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	v, err := s.Store.SetVehicleAvailability(r.Context(), parts[0], req.Available)
	if err != nil {
		s.storeProblem(w, r, err, "Set vehicle availability failed")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PlanningHealthHandler handles GET /v1/planning/health?date=YYYY-MM-DD
func (s *Server) PlanningHealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date", err.Error(), r.URL.Path)
		return
	}
	courses, err := s.Store.ListCourses(r.Context(), date)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List courses failed", err.Error(), r.URL.Path)
		return
	}
	drivers, err := s.Store.ListDrivers(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List drivers failed", err.Error(), r.URL.Path)
		return
	}
	vehicles, err := s.Store.ListVehicles(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List vehicles failed", err.Error(), r.URL.Path)
		return
	}
	changes, err := s.Store.ListPlanChanges(r.Context(), date)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List plan changes failed", err.Error(), r.URL.Path)
		return
	}
	snap := plan.HealthSnapshot{Date: date, Courses: courses, Drivers: drivers, Vehicles: vehicles, Changes: changes}
	writeJSON(w, http.StatusOK, plan.ComputeHealth(snap, s.Thresholds))
}

// PlanChangesHandler handles GET/POST /v1/planning/changes?date=
func (s *Server) PlanChangesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		date := r.URL.Query().Get("date")
		items, err := s.Store.ListPlanChanges(r.Context(), date)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List plan changes failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req struct {
			Date   string           `json:"date"`
			Change model.PlanChange `json:"change"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.Date == "" || req.Change.CourseID == "" {
			writeProblem(w, http.StatusBadRequest, "Invalid change", "date and change.courseId required", r.URL.Path)
			return
		}
		if err := s.Store.RecordPlanChange(r.Context(), req.Date, req.Change); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Record change failed", err.Error(), r.URL.Path)
			return
		}
		s.Broker.Publish(req.Date, BoardEvent{Type: "plan.changed", Data: map[string]any{
			"courseId": req.Change.CourseID, "kind": string(req.Change.Kind),
		}})
		writeJSON(w, http.StatusAccepted, map[string]any{"recorded": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// LeaveRequestsHandler handles GET/POST /v1/campaign/leave-requests
func (s *Server) LeaveRequestsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListLeaveRequests(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List leave requests failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req model.LeaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateLeaveRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid leave request", err.Error(), r.URL.Path)
			return
		}
		created, err := s.Store.CreateLeaveRequest(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create leave request failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// LeaveRequestByIDHandler handles POST /v1/campaign/leave-requests/{id}/status
func (s *Server) LeaveRequestByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/campaign/leave-requests/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] != "status" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Status model.LeaveStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if !validLeaveStatus(req.Status) {
		writeProblem(w, http.StatusBadRequest, "Invalid status", string(req.Status), r.URL.Path)
		return
	}
	updated, err := s.Store.UpdateLeaveStatus(r.Context(), parts[0], req.Status)
	if err != nil {
		s.storeProblem(w, r, err, "Update leave status failed")
		return
	}
	s.Pub.Emit(r.Context(), webhooks.EventLeaveStatusChanged, map[string]any{
		"id": updated.ID, "driverId": updated.DriverID, "status": string(updated.Status),
	})
	writeJSON(w, http.StatusOK, updated)
}

// SimulateHandler handles POST /v1/campaign/simulate
func (s *Server) SimulateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requests, err := s.Store.ListLeaveRequests(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List leave requests failed", err.Error(), r.URL.Path)
		return
	}
	needs, err := s.Store.ListCapacityNeeds(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List capacity needs failed", err.Error(), r.URL.Path)
		return
	}
	out := plan.SimulateCampaign(requests, needs, plan.DefaultScorer(s.Scoring))
	if err := s.Store.SaveSimulation(r.Context(), out); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save simulation failed", err.Error(), r.URL.Path)
		return
	}
	metrics.Simulations.Inc()
	s.Pub.Emit(r.Context(), webhooks.EventCampaignSimulated, map[string]any{"requests": len(out)})
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// CapacityHandler handles GET/PUT /v1/campaign/capacity
func (s *Server) CapacityHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListCapacityNeeds(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List capacity needs failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPut:
		var req struct {
			Items []model.CapacityNeed `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.ReplaceCapacityNeeds(r.Context(), req.Items); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Replace capacity needs failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(req.Items)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles GET/POST /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListSubscriptions(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSubscription(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
		s.storeProblem(w, r, err, "Delete subscription failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebhookDeliveriesHandler handles GET /v1/admin/webhook-deliveries
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := r.URL.Query().Get("status")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, err := s.Store.ListWebhookDeliveries(r.Context(), status, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// HealthHandler handles GET /healthz
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler handles GET /readyz
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Store.ListCapacityNeeds(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Store unavailable", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// VersionHandler handles GET /version
func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info())
}

func (s *Server) storeProblem(w http.ResponseWriter, r *http.Request, err error, title string) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not found", err.Error(), r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, title, err.Error(), r.URL.Path)
}

// mergeReassigned folds a possibly partial course selection back into the
// full tournée so persisting never drops unselected courses.
func mergeReassigned(t model.Tournee, res model.ReassignmentResult) model.Tournee {
	upd := map[string]model.Course{}
	for _, c := range res.AffectedCourses {
		upd[c.ID] = c
	}
	out := *res.UpdatedTournee
	merged := make([]model.Course, len(t.Courses))
	for i, c := range t.Courses {
		if u, ok := upd[c.ID]; ok {
			merged[i] = u
		} else {
			merged[i] = c
		}
	}
	out.Courses = merged
	return out
}

func selectCourses(t model.Tournee, ids []string) []model.Course {
	if len(ids) == 0 {
		return t.Courses
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []model.Course{}
	for _, c := range t.Courses {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
