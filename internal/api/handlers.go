package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tripnav/internal/catalog"
	"tripnav/internal/metrics"
	"tripnav/internal/model"
	"tripnav/internal/planner"
	"tripnav/internal/store"
	"tripnav/internal/webhooks"
)

// PlanHandler handles POST /v1/plan: run one search and persist the best
// itinerary. Progress events fan out on the broker under the plan id while
// the search runs.
func (s *Server) PlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w, err, r.URL.Path)
		return
	}
	if err := validatePlanRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
		return
	}
	planID := req.PlanID
	if planID == "" {
		planID = uuid.NewString()
	}

	plan, err := s.runPlan(r.Context(), planID, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, catalog.ErrAreaNotFound) {
			writeUnknownArea(w, req.Area, r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Plan failed", err.Error(), r.URL.Path)
		return
	}

	saved, err := s.Store.SavePlan(r.Context(), plan)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save plan failed", err.Error(), r.URL.Path)
		return
	}
	s.Pub.Emit(r.Context(), webhooks.EventPlanCreated, saved)
	writeJSON(w, http.StatusOK, saved)
}

// runPlan assembles the catalog index, runs the search under the configured
// deadline, and publishes progress plus a terminal event on the broker.
func (s *Server) runPlan(ctx context.Context, planID string, req model.PlanRequest) (model.Plan, error) {
	dests, err := s.Store.GetDestinations(ctx, req.Area)
	if err != nil {
		return model.Plan{}, err
	}
	transport, err := s.Store.ListTransport(ctx)
	if err != nil {
		return model.Plan{}, err
	}
	depotRecs, err := s.Store.ListDepotTransport(ctx)
	if err != nil {
		return model.Plan{}, err
	}

	copts := catalog.DefaultOptions()
	copts.Depot = s.Cfg.DepotDestination()
	if s.Cfg.Planner.SymmetricDepotReturn != nil {
		copts.SymmetricDepotReturn = *s.Cfg.Planner.SymmetricDepotReturn
	}
	idx, err := catalog.Build(req.Area, dests, transport, depotRecs, copts)
	if err != nil {
		return model.Plan{}, err
	}

	start, err := parseStartTime(req.StartTime)
	if err != nil {
		return model.Plan{}, err
	}
	timeBudget := time.Duration(s.Cfg.Planner.TimeBudgetMs) * time.Millisecond
	if req.TimeBudgetMs > 0 {
		timeBudget = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	popts := planner.Options{
		Seed:         req.Seed,
		TimeBudget:   timeBudget,
		ExploreSpot:  &s.Cfg.Planner.ExploreSpot,
		ExploreHotel: &s.Cfg.Planner.ExploreHotel,
		OnImprove: func(p planner.Progress) {
			s.Broker.Publish(planID, model.PlanEvent{
				PlanID:    planID,
				Iteration: p.Iteration,
				Score:     p.Score,
				Stops:     p.Stops,
				TotalCost: p.TotalCost,
				TS:        time.Now().UTC().Format(time.RFC3339Nano),
			})
		},
	}
	result, m := planner.Plan(idx, planner.Request{
		Area:   req.Area,
		Budget: req.Budget,
		Days:   req.Days,
		People: req.People,
		Start:  start,
	}, popts)

	metrics.PlanIterations.Observe(float64(m.Iterations))
	metrics.PlanScore.Observe(m.BestScore)
	metrics.PlanDuration.Observe(m.Elapsed.Seconds())

	total := 0
	for _, stop := range result.Route {
		total += stop.TotalCost
	}
	s.Broker.Publish(planID, model.PlanEvent{
		PlanID:    planID,
		Iteration: m.Iterations,
		Score:     m.BestScore,
		Stops:     len(result.Route),
		TotalCost: total,
		TS:        time.Now().UTC().Format(time.RFC3339Nano),
		Terminal:  true,
	})

	return model.Plan{
		ID:        planID,
		Area:      req.Area,
		Budget:    req.Budget,
		Days:      req.Days,
		People:    req.People,
		StartTime: start.Format(time.RFC3339),
		Score:     m.BestScore,
		Route:     result.Route,
		Metrics:   m.Model(),
	}, nil
}

// PlansHandler handles GET /v1/plans with cursor pagination.
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListPlans(r.Context(), cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// PlanByIDHandler handles GET /v1/plans/{id} and the progress stream at
// /v1/plans/{id}/events/stream.
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	if id, ok := strings.CutSuffix(rest, "/events/stream"); ok {
		s.streamPlanEvents(w, r, id)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, err := s.Store.GetPlan(r.Context(), rest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Plan not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get plan failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AreasHandler handles GET /v1/areas.
func (s *Server) AreasHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	areas, err := s.Store.ListAreas(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List areas failed", err.Error(), r.URL.Path)
		return
	}
	if areas == nil {
		areas = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

// AreaDestinationsHandler handles GET /v1/areas/{area}/destinations.
func (s *Server) AreaDestinationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/areas/")
	area, ok := strings.CutSuffix(rest, "/destinations")
	if !ok || area == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	dests, err := s.Store.GetDestinations(r.Context(), area)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeUnknownArea(w, area, r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "List destinations failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"area": area, "destinations": dests})
}

// DestinationsHandler handles POST /v1/destinations: bulk import or update
// an area's catalog.
func (s *Server) DestinationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Area         string              `json:"area"`
		Destinations []model.Destination `json:"destinations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w, err, r.URL.Path)
		return
	}
	if req.Area == "" || len(req.Destinations) == 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid import", "area and destinations are required", r.URL.Path)
		return
	}
	for _, d := range req.Destinations {
		if d.ID == catalog.DepotID {
			writeProblem(w, http.StatusBadRequest, "Invalid import", "destination id 0 is reserved for the origin", r.URL.Path)
			return
		}
	}
	n, err := s.Store.UpsertDestinations(r.Context(), req.Area, req.Destinations)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Import failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"area": req.Area, "upserted": n})
}

// TransportHandler handles GET/POST /v1/transport. GET returns both the
// area-internal and origin tables.
func (s *Server) TransportHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		inter, err := s.Store.ListTransport(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List transport failed", err.Error(), r.URL.Path)
			return
		}
		depot, err := s.Store.ListDepotTransport(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List transport failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transport": inter, "depot": depot})
	case http.MethodPost:
		var req struct {
			Records []model.TransportRecord `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadJSON(w, err, r.URL.Path)
			return
		}
		if len(req.Records) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid import", "records are required", r.URL.Path)
			return
		}
		n, err := s.Store.UpsertTransport(r.Context(), req.Records)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Import failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"upserted": n})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadJSON(w, err, r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events are required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		sub.Secret = ""
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		subs, err := s.Store.ListSubscriptions(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		for i := range subs {
			subs[i].Secret = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": subs})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles GET/DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == r.URL.Path || id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		subs, err := s.Store.ListSubscriptions(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get subscription failed", err.Error(), r.URL.Path)
			return
		}
		for _, sub := range subs {
			if sub.ID == id {
				sub.Secret = ""
				writeJSON(w, http.StatusOK, sub)
				return
			}
		}
		writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
	case http.MethodDelete:
		if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// IngestHandler handles POST /v1/admin/ingest: kick a travel-table
// estimation batch for one area. The batch runs in the background; its
// completion is announced through the ingest.completed webhook.
func (s *Server) IngestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w, err, r.URL.Path)
		return
	}
	if req.Area == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid ingest request", "area is required", r.URL.Path)
		return
	}
	if _, err := s.Store.GetDestinations(r.Context(), req.Area); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeUnknownArea(w, req.Area, r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Ingest failed", err.Error(), r.URL.Path)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		summary, err := s.Ingest.Run(ctx, req.Area)
		if err != nil {
			log.Printf("ingest: area %q: %v", req.Area, err)
			return
		}
		s.Pub.Emit(ctx, webhooks.EventIngestCompleted, summary)
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"area": req.Area, "status": "running"})
}

// CollectHandler handles POST /v1/admin/collect: gather an area's catalog
// (attractions and lodgings) from the places API around a center point.
// Collection runs in the background; completion is announced through the
// catalog.collected webhook.
func (s *Server) CollectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w, err, r.URL.Path)
		return
	}
	if req.Area == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid collect request", "area is required", r.URL.Path)
		return
	}
	if req.Center.Lat == 0 && req.Center.Lng == 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid collect request", "center is required", r.URL.Path)
		return
	}
	if s.Ingest.Places == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Collection unavailable", "no places API key configured", r.URL.Path)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		summary, err := s.Ingest.Collect(ctx, req.Area, req.Center)
		if err != nil {
			log.Printf("collect: area %q: %v", req.Area, err)
			return
		}
		s.Pub.Emit(ctx, webhooks.EventCatalogCollected, summary)
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"area": req.Area, "status": "running"})
}

// HealthHandler responds to liveness probes.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler responds to readiness probes; the store must answer.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Store.ListAreas(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
