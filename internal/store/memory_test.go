package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripnav/internal/model"
)

func TestMemoryDestinations(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.GetDestinations(ctx, "osaka"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := m.UpsertDestinations(ctx, "osaka", []model.Destination{
		{ID: 1, Name: "Castle", Fare: 1000},
		{ID: 2, Name: "Hotel", IsHotel: true},
		{ID: 0, Name: "reserved"}, // skipped
	})
	if err != nil || n != 2 {
		t.Fatalf("upsert: n=%d err=%v", n, err)
	}

	// Updating by id replaces in place.
	if _, err := m.UpsertDestinations(ctx, "osaka", []model.Destination{{ID: 1, Name: "Castle", Fare: 1200}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	ds, err := m.GetDestinations(ctx, "osaka")
	if err != nil || len(ds) != 2 {
		t.Fatalf("get: len=%d err=%v", len(ds), err)
	}
	if ds[0].Fare != 1200 {
		t.Fatalf("expected updated fare, got %d", ds[0].Fare)
	}

	areas, _ := m.ListAreas(ctx)
	if len(areas) != 1 || areas[0] != "osaka" {
		t.Fatalf("areas: %v", areas)
	}
}

func TestMemoryTransportSplit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.UpsertTransport(ctx, []model.TransportRecord{
		{StartDestinationID: 1, EndDestinationID: 2, Fare: 100, TimeMinutes: 20},
		{StartDestinationID: 0, EndDestinationID: 1, Fare: 200, TimeMinutes: 30},
		{StartDestinationID: 2, EndDestinationID: 0, Fare: 150, TimeMinutes: 25},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	inter, _ := m.ListTransport(ctx)
	if len(inter) != 1 || inter[0].StartDestinationID != 1 {
		t.Fatalf("inter rows: %+v", inter)
	}
	depot, _ := m.ListDepotTransport(ctx)
	if len(depot) != 2 {
		t.Fatalf("depot rows: %+v", depot)
	}

	// Upsert on the same (from, to) key replaces the row.
	_, _ = m.UpsertTransport(ctx, []model.TransportRecord{
		{StartDestinationID: 1, EndDestinationID: 2, Fare: 120, TimeMinutes: 18},
	})
	inter, _ = m.ListTransport(ctx)
	if len(inter) != 1 || inter[0].Fare != 120 {
		t.Fatalf("after update: %+v", inter)
	}
}

func TestMemoryPlansPagination(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := m.SavePlan(ctx, model.Plan{Area: "osaka", Budget: 1000 * (i + 1)})
		if err != nil || p.ID == "" || p.CreatedAt == "" {
			t.Fatalf("save: %+v err=%v", p, err)
		}
		ids = append(ids, p.ID)
	}

	got, err := m.GetPlan(ctx, ids[1])
	if err != nil || got.Budget != 2000 {
		t.Fatalf("get: %+v err=%v", got, err)
	}
	if _, err := m.GetPlan(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	page1, next, err := m.ListPlans(ctx, "", 2)
	if err != nil || len(page1) != 2 || next != ids[1] {
		t.Fatalf("page1: len=%d next=%q err=%v", len(page1), next, err)
	}
	page2, next, err := m.ListPlans(ctx, next, 2)
	if err != nil || len(page2) != 1 || next != "" {
		t.Fatalf("page2: len=%d next=%q err=%v", len(page2), next, err)
	}
	if page2[0].ID != ids[2] {
		t.Fatalf("page2 order: %+v", page2)
	}
}

func TestMemorySubscriptions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s1, _ := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://a", Events: []string{"plan.created"}, Secret: "s"})
	s2, _ := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://b", Events: []string{"*"}})

	subs, _ := m.GetSubscriptionsForEvent(ctx, "plan.created")
	if len(subs) != 2 {
		t.Fatalf("expected wildcard and exact match, got %d", len(subs))
	}
	subs, _ = m.GetSubscriptionsForEvent(ctx, "ingest.completed")
	if len(subs) != 1 || subs[0].ID != s2.ID {
		t.Fatalf("expected wildcard only, got %+v", subs)
	}

	listed, _ := m.ListSubscriptions(ctx)
	for _, s := range listed {
		if s.Secret != "" {
			t.Fatalf("secret leaked in listing: %+v", s)
		}
	}

	if err := m.DeleteSubscription(ctx, s1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.DeleteSubscription(ctx, s1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.EnqueueWebhook(ctx, "sub1", "plan.created", "https://example.test/hook", "secret", []byte(`{}`))
	if err != nil || id == "" {
		t.Fatalf("enqueue: id=%q err=%v", id, err)
	}

	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].ID != id || due[0].Status != "pending" {
		t.Fatalf("due: %+v", due)
	}

	// A future retry time parks the delivery.
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500); err != nil {
		t.Fatalf("mark retry: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("parked delivery fetched: %+v", due)
	}

	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200); err != nil {
		t.Fatalf("mark success: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("delivered delivery fetched: %+v", due)
	}
}
