package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tourplan/internal/model"
)

// Postgres stores tournées, resources and campaign data. Planning documents
// are kept as JSONB; the relational columns carry only what queries filter on.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// MigrateDir applies every .sql file in dir in lexical order. Files are
// expected to be idempotent (CREATE TABLE IF NOT EXISTS and friends).
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) ListTournees(ctx context.Context, date string) ([]model.Tournee, error) {
	q := `SELECT doc FROM tournees ORDER BY code`
	args := []any{}
	if date != "" {
		q = `SELECT doc FROM tournees WHERE plan_date=$1 ORDER BY code`
		args = append(args, date)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Tournee{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var t model.Tournee
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) GetTournee(ctx context.Context, code string) (model.Tournee, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM tournees WHERE code=$1`, code).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tournee{}, ErrNotFound
	}
	if err != nil {
		return model.Tournee{}, err
	}
	var t model.Tournee
	if err := json.Unmarshal(doc, &t); err != nil {
		return model.Tournee{}, err
	}
	return t, nil
}

func (p *Postgres) UpsertTournee(ctx context.Context, t model.Tournee) error {
	if t.Version == 0 {
		t.Version = 1
	}
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO tournees (code, plan_date, version, doc, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (code) DO UPDATE SET plan_date=$2, version=tournees.version+1,
			doc=jsonb_set($4::jsonb, '{version}', to_jsonb(tournees.version+1)), updated_at=now()`,
		t.Code, tourneeDate(t), t.Version, doc)
	return err
}

func (p *Postgres) ListCourses(ctx context.Context, date string) ([]model.Course, error) {
	ts, err := p.ListTournees(ctx, date)
	if err != nil {
		return nil, err
	}
	out := []model.Course{}
	for _, t := range ts {
		for _, c := range t.Courses {
			if date == "" || c.Date == date {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *Postgres) ApplyReassignment(ctx context.Context, res model.ReassignmentResult, expectedVersion int) (model.Tournee, error) {
	if res.UpdatedTournee == nil {
		return model.Tournee{}, ErrNotFound
	}
	next := *res.UpdatedTournee
	next.Version = expectedVersion + 1
	doc, err := json.Marshal(next)
	if err != nil {
		return model.Tournee{}, err
	}
	r, err := p.db.ExecContext(ctx, `UPDATE tournees SET version=$1, doc=$2, updated_at=now()
		WHERE code=$3 AND version=$4`, next.Version, doc, next.Code, expectedVersion)
	if err != nil {
		return model.Tournee{}, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return model.Tournee{}, err
	}
	if n == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT true FROM tournees WHERE code=$1`, next.Code).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.Tournee{}, ErrNotFound
			}
			return model.Tournee{}, err
		}
		return model.Tournee{}, ErrVersionConflict
	}
	return next, nil
}

func (p *Postgres) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM drivers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Driver{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var d model.Driver
		if err := json.Unmarshal(doc, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Vehicle{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var v model.Vehicle
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) UpsertDriver(ctx context.Context, d model.Driver) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	doc, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO drivers (id, available, doc) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET available=$2, doc=$3`, d.ID, d.Available, doc)
	return err
}

func (p *Postgres) UpsertVehicle(ctx context.Context, v model.Vehicle) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO vehicles (id, available, doc) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET available=$2, doc=$3`, v.ID, v.Available, doc)
	return err
}

func (p *Postgres) SetDriverAvailability(ctx context.Context, id string, available bool) (model.Driver, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `UPDATE drivers SET available=$2,
		doc=jsonb_set(doc, '{available}', to_jsonb($2::bool)) WHERE id=$1 RETURNING doc`, id, available).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Driver{}, ErrNotFound
	}
	if err != nil {
		return model.Driver{}, err
	}
	var d model.Driver
	if err := json.Unmarshal(doc, &d); err != nil {
		return model.Driver{}, err
	}
	return d, nil
}

func (p *Postgres) SetVehicleAvailability(ctx context.Context, id string, available bool) (model.Vehicle, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `UPDATE vehicles SET available=$2,
		doc=jsonb_set(doc, '{available}', to_jsonb($2::bool)) WHERE id=$1 RETURNING doc`, id, available).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vehicle{}, ErrNotFound
	}
	if err != nil {
		return model.Vehicle{}, err
	}
	var v model.Vehicle
	if err := json.Unmarshal(doc, &v); err != nil {
		return model.Vehicle{}, err
	}
	return v, nil
}

func (p *Postgres) ListPlanChanges(ctx context.Context, date string) ([]model.PlanChange, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, course_id, kind, at FROM plan_changes WHERE plan_date=$1 ORDER BY at`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PlanChange{}
	for rows.Next() {
		var ch model.PlanChange
		var kind string
		if err := rows.Scan(&ch.ID, &ch.CourseID, &kind, &ch.At); err != nil {
			return nil, err
		}
		ch.Kind = model.ChangeKind(kind)
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (p *Postgres) RecordPlanChange(ctx context.Context, date string, ch model.PlanChange) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.At.IsZero() {
		ch.At = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO plan_changes (id, plan_date, course_id, kind, at) VALUES ($1,$2,$3,$4,$5)`,
		ch.ID, date, ch.CourseID, string(ch.Kind), ch.At)
	return err
}

func (p *Postgres) CreateLeaveRequest(ctx context.Context, r model.LeaveRequest) (model.LeaveRequest, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = model.LeavePending
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(r)
	if err != nil {
		return model.LeaveRequest{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO leave_requests (id, status, doc) VALUES ($1,$2,$3)`, r.ID, string(r.Status), doc)
	if err != nil {
		return model.LeaveRequest{}, err
	}
	return r, nil
}

func (p *Postgres) ListLeaveRequests(ctx context.Context) ([]model.LeaveRequest, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM leave_requests ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.LeaveRequest{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var r model.LeaveRequest
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateLeaveStatus(ctx context.Context, id string, status model.LeaveStatus) (model.LeaveRequest, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `UPDATE leave_requests SET status=$2,
		doc=jsonb_set(doc, '{status}', to_jsonb($2::text)) WHERE id=$1 RETURNING doc`, id, string(status)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LeaveRequest{}, ErrNotFound
	}
	if err != nil {
		return model.LeaveRequest{}, err
	}
	var r model.LeaveRequest
	if err := json.Unmarshal(doc, &r); err != nil {
		return model.LeaveRequest{}, err
	}
	return r, nil
}

func (p *Postgres) SaveSimulation(ctx context.Context, requests []model.LeaveRequest) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, r := range requests {
		doc, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE leave_requests SET status=$2, doc=$3 WHERE id=$1`, r.ID, string(r.Status), doc); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListCapacityNeeds(ctx context.Context) ([]model.CapacityNeed, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT week, zone, skill, capacity FROM capacity_needs ORDER BY week, zone, skill`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CapacityNeed{}
	for rows.Next() {
		var n model.CapacityNeed
		if err := rows.Scan(&n.Week, &n.Zone, &n.Skill, &n.Capacity); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *Postgres) ReplaceCapacityNeeds(ctx context.Context, needs []model.CapacityNeed) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM capacity_needs`); err != nil {
		return err
	}
	for _, n := range needs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO capacity_needs (week, zone, skill, capacity) VALUES ($1,$2,$3,$4)`,
			n.Week, n.Zone, n.Skill, n.Capacity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	sub := model.Subscription{ID: uuid.NewString(), URL: req.URL, Events: req.Events, Secret: req.Secret, CreatedAt: time.Now().UTC()}
	events, err := json.Marshal(sub.Events)
	if err != nil {
		return model.Subscription{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, url, events, secret, created_at) VALUES ($1,$2,$3,$4,$5)`,
		sub.ID, sub.URL, events, nullIfEmpty(sub.Secret), sub.CreatedAt)
	if err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events, COALESCE(secret,''), created_at FROM subscriptions
		WHERE events ? $1 OR events ? '*' ORDER BY id`, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events, COALESCE(secret,''), created_at FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func scanSubscriptions(rows *sql.Rows) ([]model.Subscription, error) {
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(events, &s.Events); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	r, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries
		(id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now(),now(),now())`,
		id, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
		FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered',
			last_error=NULL, response_code=$2, latency_ms=$3, updated_at=now() WHERE id=$1`, id, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, last_error=$2,
		next_attempt_at=$3, response_code=$4, latency_ms=$5, updated_at=now() WHERE id=$1`,
		id, nullIfEmpty(lastError), nextAttemptAt, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed',
		last_error=$2, response_code=$3, latency_ms=$4, updated_at=now() WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]map[string]any, error) {
	q := `SELECT id::text, COALESCE(subscription_id::text,''), event_type, status, attempts, COALESCE(last_error,''),
		COALESCE(response_code,0), COALESCE(latency_ms,0), updated_at FROM webhook_deliveries`
	args := []any{}
	if status != "" {
		q += ` WHERE status=$1`
		args = append(args, status)
	}
	q += ` ORDER BY updated_at DESC LIMIT ` + itoa(limit)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []map[string]any{}
	for rows.Next() {
		var id, subID, eventType, st, lastError string
		var attempts, responseCode, latencyMs int
		var updatedAt time.Time
		if err := rows.Scan(&id, &subID, &eventType, &st, &attempts, &lastError, &responseCode, &latencyMs, &updatedAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]any{
			"id": id, "subscriptionId": subID, "eventType": eventType, "status": st,
			"attempts": attempts, "lastError": lastError, "responseCode": responseCode,
			"latencyMs": latencyMs, "updatedAt": updatedAt,
		})
	}
	return out, rows.Err()
}

func tourneeDate(t model.Tournee) string {
	if len(t.Courses) == 0 {
		return ""
	}
	return t.Courses[0].Date
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func itoa(n int) string {
	if n <= 0 {
		n = 100
	}
	return strconv.Itoa(n)
}
