package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourplan/internal/model"
)

// Memory is an in-memory Store for tests and single-node development.
type Memory struct {
	mu            sync.Mutex
	tournees      map[string]model.Tournee // keyed by code
	drivers       map[string]model.Driver
	vehicles      map[string]model.Vehicle
	changes       map[string][]model.PlanChange // keyed by date
	leaves        map[string]model.LeaveRequest
	needs         []model.CapacityNeed
	subscriptions map[string]model.Subscription
	deliveries    map[string]*memDelivery
}

type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewMemory() *Memory {
	return &Memory{
		tournees:      map[string]model.Tournee{},
		drivers:       map[string]model.Driver{},
		vehicles:      map[string]model.Vehicle{},
		changes:       map[string][]model.PlanChange{},
		leaves:        map[string]model.LeaveRequest{},
		subscriptions: map[string]model.Subscription{},
		deliveries:    map[string]*memDelivery{},
	}
}

func (m *Memory) ListTournees(_ context.Context, date string) ([]model.Tournee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Tournee{}
	for _, t := range m.tournees {
		if date == "" || tourneeOnDate(t, date) {
			out = append(out, cloneTournee(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) GetTournee(_ context.Context, code string) (model.Tournee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournees[code]
	if !ok {
		return model.Tournee{}, ErrNotFound
	}
	return cloneTournee(t), nil
}

func (m *Memory) UpsertTournee(_ context.Context, t model.Tournee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.tournees[t.Code]; ok {
		t.Version = prev.Version + 1
	} else if t.Version == 0 {
		t.Version = 1
	}
	m.tournees[t.Code] = cloneTournee(t)
	return nil
}

func (m *Memory) ListCourses(_ context.Context, date string) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Course{}
	for _, t := range m.tournees {
		for _, c := range t.Courses {
			if date == "" || c.Date == date {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ApplyReassignment(_ context.Context, res model.ReassignmentResult, expectedVersion int) (model.Tournee, error) {
	if res.UpdatedTournee == nil {
		return model.Tournee{}, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tournees[res.UpdatedTournee.Code]
	if !ok {
		return model.Tournee{}, ErrNotFound
	}
	if cur.Version != expectedVersion {
		return model.Tournee{}, ErrVersionConflict
	}
	next := cloneTournee(*res.UpdatedTournee)
	next.Version = cur.Version + 1
	m.tournees[next.Code] = next
	return cloneTournee(next), nil
}

func (m *Memory) ListDrivers(_ context.Context) ([]model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Driver{}
	for _, d := range m.drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListVehicles(_ context.Context) ([]model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Vehicle{}
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpsertDriver(_ context.Context, d model.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.drivers[d.ID] = d
	return nil
}

func (m *Memory) UpsertVehicle(_ context.Context, v model.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	m.vehicles[v.ID] = v
	return nil
}

func (m *Memory) SetDriverAvailability(_ context.Context, id string, available bool) (model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return model.Driver{}, ErrNotFound
	}
	d.Available = available
	m.drivers[id] = d
	return d, nil
}

func (m *Memory) SetVehicleAvailability(_ context.Context, id string, available bool) (model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return model.Vehicle{}, ErrNotFound
	}
	v.Available = available
	m.vehicles[id] = v
	return v, nil
}

func (m *Memory) ListPlanChanges(_ context.Context, date string) ([]model.PlanChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PlanChange{}
	out = append(out, m.changes[date]...)
	return out, nil
}

func (m *Memory) RecordPlanChange(_ context.Context, date string, ch model.PlanChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.At.IsZero() {
		ch.At = time.Now().UTC()
	}
	m.changes[date] = append(m.changes[date], ch)
	return nil
}

func (m *Memory) CreateLeaveRequest(_ context.Context, r model.LeaveRequest) (model.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = model.LeavePending
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	m.leaves[r.ID] = r
	return r, nil
}

func (m *Memory) ListLeaveRequests(_ context.Context) ([]model.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.LeaveRequest{}
	for _, r := range m.leaves {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateLeaveStatus(_ context.Context, id string, status model.LeaveStatus) (model.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.leaves[id]
	if !ok {
		return model.LeaveRequest{}, ErrNotFound
	}
	r.Status = status
	m.leaves[id] = r
	return r, nil
}

func (m *Memory) SaveSimulation(_ context.Context, requests []model.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range requests {
		if _, ok := m.leaves[r.ID]; ok {
			m.leaves[r.ID] = r
		}
	}
	return nil
}

func (m *Memory) ListCapacityNeeds(_ context.Context) ([]model.CapacityNeed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.CapacityNeed{}
	out = append(out, m.needs...)
	return out, nil
}

func (m *Memory) ReplaceCapacityNeeds(_ context.Context, needs []model.CapacityNeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.needs = append([]model.CapacityNeed{}, needs...)
	return nil
}

func (m *Memory) CreateSubscription(_ context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{
		ID:        uuid.NewString(),
		URL:       req.URL,
		Events:    append([]string{}, req.Events...),
		Secret:    req.Secret,
		CreatedAt: time.Now().UTC(),
	}
	m.subscriptions[sub.ID] = sub
	return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(_ context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subscriptions {
		for _, et := range s.Events {
			if et == eventType || et == "*" {
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListSubscriptions(_ context.Context) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subscriptions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteSubscription(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscriptions[id]; !ok {
		return ErrNotFound
	}
	delete(m.subscriptions, id)
	return nil
}

func (m *Memory) EnqueueWebhook(_ context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	now := time.Now().UTC()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID:             id,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        append([]byte{}, payload...),
			Status:         "pending",
		},
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(_ context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	out := []WebhookDelivery{}
	ids := make([]string, 0, len(m.deliveries))
	for id := range m.deliveries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d := m.deliveries[id]
		if d.Status != "pending" || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(_ context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	d.UpdatedAt = time.Now().UTC()
	if success {
		d.Status = "delivered"
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(_ context.Context, id, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) ListWebhookDeliveries(_ context.Context, status string, limit int) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.deliveries))
	for id := range m.deliveries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []map[string]any{}
	for _, id := range ids {
		d := m.deliveries[id]
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, map[string]any{
			"id":             d.ID,
			"subscriptionId": d.SubscriptionID,
			"eventType":      d.EventType,
			"status":         d.Status,
			"attempts":       d.Attempts,
			"lastError":      d.LastError,
			"responseCode":   d.ResponseCode,
			"latencyMs":      d.LatencyMs,
			"updatedAt":      d.UpdatedAt,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func tourneeOnDate(t model.Tournee, date string) bool {
	for _, c := range t.Courses {
		if c.Date == date {
			return true
		}
	}
	return false
}

func cloneTournee(t model.Tournee) model.Tournee {
	cp := t
	cp.Courses = append([]model.Course{}, t.Courses...)
	for i := range cp.Courses {
		cp.Courses[i].RequiredSkills = append([]string{}, cp.Courses[i].RequiredSkills...)
	}
	return cp
}
