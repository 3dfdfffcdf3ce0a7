package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tripnav/internal/model"
)

// Postgres backs the store with the destinations/transport schema the
// batch collectors populate.
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

// Migrate creates the schema if absent. Dev helper, same spirit as running
// migration files at startup.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS destinations (
    area        text    NOT NULL,
    id          integer NOT NULL,
    name        text    NOT NULL,
    local_name  text,
    category    text,
    fare        integer NOT NULL DEFAULT 0,
    staytime    integer NOT NULL DEFAULT 0,
    rating      double precision,
    description text,
    address     text,
    lat         double precision NOT NULL DEFAULT 0,
    lng         double precision NOT NULL DEFAULT 0,
    ishotel     boolean NOT NULL DEFAULT false,
    PRIMARY KEY (area, id)
);
CREATE TABLE IF NOT EXISTS transport (
    start_destination_id integer NOT NULL,
    end_destination_id   integer NOT NULL,
    fare                 integer NOT NULL DEFAULT 0,
    method               text,
    time_minutes         integer NOT NULL DEFAULT 0,
    PRIMARY KEY (start_destination_id, end_destination_id)
);
CREATE TABLE IF NOT EXISTS plans (
    id         uuid PRIMARY KEY,
    area       text NOT NULL,
    budget     integer NOT NULL,
    days       integer NOT NULL,
    people     integer NOT NULL,
    start_time text NOT NULL,
    score      double precision NOT NULL,
    route      jsonb NOT NULL,
    metrics    jsonb NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS subscriptions (
    id     uuid PRIMARY KEY,
    url    text NOT NULL,
    events jsonb NOT NULL,
    secret text NOT NULL
);
CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id              uuid PRIMARY KEY,
    subscription_id uuid NOT NULL,
    event_type      text NOT NULL,
    url             text NOT NULL,
    secret          text NOT NULL,
    payload         bytea NOT NULL,
    status          text NOT NULL DEFAULT 'pending',
    attempts        integer NOT NULL DEFAULT 0,
    last_error      text,
    response_code   integer,
    next_attempt_at timestamptz NOT NULL DEFAULT now(),
    created_at      timestamptz NOT NULL DEFAULT now()
);`)
	return err
}

func (p *Postgres) ListAreas(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT area FROM destinations ORDER BY area`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) GetDestinations(ctx context.Context, area string) ([]model.Destination, error) {
	rows, err := p.db.QueryContext(ctx, `
SELECT id, name, COALESCE(local_name,''), COALESCE(category,''), fare, staytime,
       COALESCE(rating,0), COALESCE(description,''), COALESCE(address,''), lat, lng, ishotel
FROM destinations WHERE area=$1 ORDER BY id`, area)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Destination
	for rows.Next() {
		var d model.Destination
		if err := rows.Scan(&d.ID, &d.Name, &d.LocalName, &d.Category, &d.Fare, &d.StayTime,
			&d.Rating, &d.Description, &d.Address, &d.Location.Lat, &d.Location.Lng, &d.IsHotel); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (p *Postgres) UpsertDestinations(ctx context.Context, area string, items []model.Destination) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	n := 0
	for _, d := range items {
		if d.ID <= 0 {
			continue
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO destinations (area, id, name, local_name, category, fare, staytime, rating, description, address, lat, lng, ishotel)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (area, id) DO UPDATE SET
    name=EXCLUDED.name, local_name=EXCLUDED.local_name, category=EXCLUDED.category,
    fare=EXCLUDED.fare, staytime=EXCLUDED.staytime, rating=EXCLUDED.rating,
    description=EXCLUDED.description, address=EXCLUDED.address,
    lat=EXCLUDED.lat, lng=EXCLUDED.lng, ishotel=EXCLUDED.ishotel`,
			area, d.ID, d.Name, d.LocalName, d.Category, d.Fare, d.StayTime, d.Rating,
			d.Description, d.Address, d.Location.Lat, d.Location.Lng, d.IsHotel)
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

func (p *Postgres) listTransportWhere(ctx context.Context, where string) ([]model.TransportRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
SELECT start_destination_id, end_destination_id, fare, COALESCE(method,''), time_minutes
FROM transport WHERE `+where)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TransportRecord
	for rows.Next() {
		var r model.TransportRecord
		if err := rows.Scan(&r.StartDestinationID, &r.EndDestinationID, &r.Fare, &r.Method, &r.TimeMinutes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) ListTransport(ctx context.Context) ([]model.TransportRecord, error) {
	return p.listTransportWhere(ctx, `start_destination_id <> 0 AND end_destination_id <> 0`)
}

func (p *Postgres) ListDepotTransport(ctx context.Context) ([]model.TransportRecord, error) {
	return p.listTransportWhere(ctx, `start_destination_id = 0 OR end_destination_id = 0`)
}

func (p *Postgres) UpsertTransport(ctx context.Context, recs []model.TransportRecord) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	n := 0
	for _, r := range recs {
		_, err = tx.ExecContext(ctx, `
INSERT INTO transport (start_destination_id, end_destination_id, fare, method, time_minutes)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (start_destination_id, end_destination_id) DO UPDATE SET
    fare=EXCLUDED.fare, method=EXCLUDED.method, time_minutes=EXCLUDED.time_minutes`,
			r.StartDestinationID, r.EndDestinationID, r.Fare, r.Method, r.TimeMinutes)
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

func (p *Postgres) SavePlan(ctx context.Context, plan model.Plan) (model.Plan, error) {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.CreatedAt == "" {
		plan.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	route, err := json.Marshal(plan.Route)
	if err != nil {
		return model.Plan{}, err
	}
	metrics, err := json.Marshal(plan.Metrics)
	if err != nil {
		return model.Plan{}, err
	}
	_, err = p.db.ExecContext(ctx, `
INSERT INTO plans (id, area, budget, days, people, start_time, score, route, metrics, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
    area=EXCLUDED.area, budget=EXCLUDED.budget, days=EXCLUDED.days, people=EXCLUDED.people,
    start_time=EXCLUDED.start_time, score=EXCLUDED.score, route=EXCLUDED.route, metrics=EXCLUDED.metrics`,
		plan.ID, plan.Area, plan.Budget, plan.Days, plan.People, plan.StartTime, plan.Score, route, metrics, plan.CreatedAt)
	if err != nil {
		return model.Plan{}, err
	}
	return plan, nil
}

func (p *Postgres) scanPlan(row interface{ Scan(...any) error }) (model.Plan, error) {
	var plan model.Plan
	var route, metrics []byte
	var created time.Time
	err := row.Scan(&plan.ID, &plan.Area, &plan.Budget, &plan.Days, &plan.People,
		&plan.StartTime, &plan.Score, &route, &metrics, &created)
	if err != nil {
		return model.Plan{}, err
	}
	if err := json.Unmarshal(route, &plan.Route); err != nil {
		return model.Plan{}, err
	}
	if err := json.Unmarshal(metrics, &plan.Metrics); err != nil {
		return model.Plan{}, err
	}
	plan.CreatedAt = created.UTC().Format(time.RFC3339)
	return plan, nil
}

func (p *Postgres) GetPlan(ctx context.Context, id string) (model.Plan, error) {
	row := p.db.QueryRowContext(ctx, `
SELECT id::text, area, budget, days, people, start_time, score, route, metrics, created_at
FROM plans WHERE id=$1`, id)
	plan, err := p.scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Plan{}, ErrNotFound
	}
	return plan, err
}

func (p *Postgres) ListPlans(ctx context.Context, cursor string, limit int) ([]model.Plan, string, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT id::text, area, budget, days, people, start_time, score, route, metrics, created_at
FROM plans`
	args := []any{}
	if cursor != "" {
		q += ` WHERE id > $1`
		args = append(args, cursor)
	}
	q += ` ORDER BY id LIMIT ` + strconv.Itoa(limit+1)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	var out []model.Plan
	for rows.Next() {
		plan, err := p.scanPlan(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	events, err := json.Marshal(s.Events)
	if err != nil {
		return model.Subscription{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`,
		s.ID, s.URL, events, s.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(events, &s.Events); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `
SELECT id::text, url, events, secret FROM subscriptions
WHERE events ? $1 OR events ? '*'`, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
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
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `
INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload)
VALUES ($1,$2,$3,$4,$5,$6)`, id, subscriptionID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
SELECT id::text, subscription_id::text, event_type, url, secret, payload, status, attempts
FROM webhook_deliveries
WHERE status='pending' AND next_attempt_at <= now()
ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int) error {
	var err error
	switch {
	case success:
		_, err = p.db.ExecContext(ctx, `
UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, last_error=NULL, response_code=$2
WHERE id=$1`, id, responseCode)
	case nextAttemptAt != nil:
		_, err = p.db.ExecContext(ctx, `
UPDATE webhook_deliveries SET attempts=attempts+1, last_error=$2, response_code=$3, next_attempt_at=$4
WHERE id=$1`, id, lastError, responseCode, *nextAttemptAt)
	default:
		_, err = p.db.ExecContext(ctx, `
UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3
WHERE id=$1`, id, lastError, responseCode)
	}
	return err
}
