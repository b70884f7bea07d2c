package store

import (
	"context"
	"errors"
	"time"

	"tourplan/internal/model"
)

// Store is the persistence interface used by the API server. The planning
// core never touches it: handlers read a snapshot, run the pure functions,
// then write results back through here.
type Store interface {
	// Tournées & courses
	ListTournees(ctx context.Context, date string) ([]model.Tournee, error)
	GetTournee(ctx context.Context, code string) (model.Tournee, error)
	UpsertTournee(ctx context.Context, t model.Tournee) error
	ListCourses(ctx context.Context, date string) ([]model.Course, error)
	// ApplyReassignment persists a successful reassignment iff the stored
	// tournée still carries expectedVersion (optimistic concurrency).
	ApplyReassignment(ctx context.Context, res model.ReassignmentResult, expectedVersion int) (model.Tournee, error)

	// Resources
	ListDrivers(ctx context.Context) ([]model.Driver, error)
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	UpsertDriver(ctx context.Context, d model.Driver) error
	UpsertVehicle(ctx context.Context, v model.Vehicle) error
	SetDriverAvailability(ctx context.Context, id string, available bool) (model.Driver, error)
	SetVehicleAvailability(ctx context.Context, id string, available bool) (model.Vehicle, error)

	// Plan modifications since the last published plan
	ListPlanChanges(ctx context.Context, date string) ([]model.PlanChange, error)
	RecordPlanChange(ctx context.Context, date string, ch model.PlanChange) error

	// Vacation campaign
	CreateLeaveRequest(ctx context.Context, r model.LeaveRequest) (model.LeaveRequest, error)
	ListLeaveRequests(ctx context.Context) ([]model.LeaveRequest, error)
	UpdateLeaveStatus(ctx context.Context, id string, status model.LeaveStatus) (model.LeaveRequest, error)
	SaveSimulation(ctx context.Context, requests []model.LeaveRequest) error
	ListCapacityNeeds(ctx context.Context) ([]model.CapacityNeed, error)
	ReplaceCapacityNeeds(ctx context.Context, needs []model.CapacityNeed) error

	// Alert webhook subscriptions & deliveries
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]map[string]any, error)
}

// WebhookDelivery is one pending or settled alert delivery.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

var (
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict signals a concurrent edit: the caller should re-read
	// the tournée and retry the reassignment against the fresh snapshot.
	ErrVersionConflict = errors.New("version conflict")
)
