package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripnav/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set and in
// tests. Depot rows (either endpoint 0) live in the same transport slice
// and are split on read.
type Memory struct {
	mu           sync.Mutex
	destinations map[string][]model.Destination // area -> records
	transport    []model.TransportRecord
	plans        map[string]model.Plan
	planOrder    []string
	subs         map[string]model.Subscription
	deliveries   map[string]*memDelivery
	deliveryIDs  []string
}

func NewMemory() *Memory {
	return &Memory{
		destinations: map[string][]model.Destination{},
		plans:        map[string]model.Plan{},
		subs:         map[string]model.Subscription{},
		deliveries:   map[string]*memDelivery{},
	}
}

type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
}

func (m *Memory) ListAreas(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	areas := make([]string, 0, len(m.destinations))
	for a := range m.destinations {
		areas = append(areas, a)
	}
	sort.Strings(areas)
	return areas, nil
}

func (m *Memory) GetDestinations(ctx context.Context, area string) ([]model.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.destinations[area]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.Destination, len(ds))
	copy(out, ds)
	return out, nil
}

func (m *Memory) UpsertDestinations(ctx context.Context, area string, items []model.Destination) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := map[int]int{}
	for i, d := range m.destinations[area] {
		byID[d.ID] = i
	}
	n := 0
	for _, d := range items {
		if d.ID <= 0 {
			continue
		}
		if i, ok := byID[d.ID]; ok {
			m.destinations[area][i] = d
		} else {
			byID[d.ID] = len(m.destinations[area])
			m.destinations[area] = append(m.destinations[area], d)
		}
		n++
	}
	return n, nil
}

func (m *Memory) ListTransport(ctx context.Context) ([]model.TransportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TransportRecord
	for _, r := range m.transport {
		if r.StartDestinationID != 0 && r.EndDestinationID != 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListDepotTransport(ctx context.Context) ([]model.TransportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TransportRecord
	for _, r := range m.transport {
		if r.StartDestinationID == 0 || r.EndDestinationID == 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) UpsertTransport(ctx context.Context, recs []model.TransportRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type key struct{ from, to int }
	byKey := map[key]int{}
	for i, r := range m.transport {
		byKey[key{r.StartDestinationID, r.EndDestinationID}] = i
	}
	n := 0
	for _, r := range recs {
		k := key{r.StartDestinationID, r.EndDestinationID}
		if i, ok := byKey[k]; ok {
			m.transport[i] = r
		} else {
			byKey[k] = len(m.transport)
			m.transport = append(m.transport, r)
		}
		n++
	}
	return n, nil
}

func (m *Memory) SavePlan(ctx context.Context, p model.Plan) (model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt == "" {
		p.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if _, exists := m.plans[p.ID]; !exists {
		m.planOrder = append(m.planOrder, p.ID)
	}
	m.plans[p.ID] = p
	return p, nil
}

func (m *Memory) GetPlan(ctx context.Context, id string) (model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return model.Plan{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPlans(ctx context.Context, cursor string, limit int) ([]model.Plan, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.planOrder {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Plan{}
	var next string
	for i := start; i < len(m.planOrder) && len(out) < limit; i++ {
		out = append(out, m.plans[m.planOrder[i]])
		next = m.planOrder[i]
	}
	if start+len(out) >= len(m.planOrder) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[s.ID] = s
	return s, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		s.Secret = ""
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID:             id,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        payload,
			Status:         "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.deliveryIDs = append(m.deliveryIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := time.Now()
	var out []WebhookDelivery
	for _, id := range m.deliveryIDs {
		d := m.deliveries[id]
		if d.Status != "pending" || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	switch {
	case success:
		d.Status = "delivered"
	case nextAttemptAt != nil:
		d.NextAttemptAt = *nextAttemptAt
	default:
		d.Status = "failed"
	}
	return nil
}
