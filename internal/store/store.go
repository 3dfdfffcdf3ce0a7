package store

import (
	"context"
	"errors"
	"time"

	"tripnav/internal/model"
)

// Store is the persistence interface used by the API server: the area
// catalog and travel tables the planner consumes, saved plans, and webhook
// subscription/delivery state.
type Store interface {
	// Catalog
	ListAreas(ctx context.Context) ([]string, error)
	GetDestinations(ctx context.Context, area string) ([]model.Destination, error)
	UpsertDestinations(ctx context.Context, area string, items []model.Destination) (int, error)

	// Travel tables. Depot records are the rows touching destination id 0.
	ListTransport(ctx context.Context) ([]model.TransportRecord, error)
	ListDepotTransport(ctx context.Context) ([]model.TransportRecord, error)
	UpsertTransport(ctx context.Context, recs []model.TransportRecord) (int, error)

	// Plans
	SavePlan(ctx context.Context, p model.Plan) (model.Plan, error)
	GetPlan(ctx context.Context, id string) (model.Plan, error)
	ListPlans(ctx context.Context, cursor string, limit int) ([]model.Plan, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int) error
}

// WebhookDelivery is one queued outbound notification.
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

var ErrNotFound = errors.New("not found")
