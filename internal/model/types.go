package model

// Core domain types shared by the catalog, planner, store and API layers.

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Destination is one catalog record for a sightseeing area. ID 0 is reserved
// for the trip origin and never appears in a loaded catalog. Fare is per
// person in whole currency units, StayTime in minutes.
type Destination struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	LocalName   string   `json:"local_name,omitempty"`
	Category    string   `json:"category,omitempty"`
	Fare        int      `json:"fare"`
	StayTime    int      `json:"staytime"`
	Rating      float64  `json:"rating,omitempty"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address,omitempty"`
	Location    GeoPoint `json:"location"`
	IsHotel     bool     `json:"ishotel"`
}

// TransportRecord is one directed travel edge. Records with
// StartDestinationID 0 belong to the origin table; everything else is
// area-internal. Edges are not symmetric and absence means infeasible.
type TransportRecord struct {
	StartDestinationID int    `json:"start_destination_id"`
	EndDestinationID   int    `json:"end_destination_id"`
	Fare               int    `json:"transportation_fare"`
	Method             string `json:"transportation_method"`
	TimeMinutes        int    `json:"transportation_time"`
}

// PlanRequest is the body of POST /v1/plan. PlanID is optional and
// client-generated; supplying one lets a caller subscribe to the progress
// stream before the synchronous response arrives.
type PlanRequest struct {
	PlanID       string `json:"plan_id,omitempty"`
	Area         string `json:"area"`
	Budget       int    `json:"budget"`
	Days         int    `json:"days"`
	People       int    `json:"people"`
	StartTime    string `json:"start_time"` // ISO-8601
	TimeBudgetMs int    `json:"timeBudgetMs,omitempty"`
	Seed         int64  `json:"seed,omitempty"`
}

// RouteStop is one formatted stop of a computed itinerary. TotalCost is
// already scaled by party size.
type RouteStop struct {
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Name          string  `json:"name"`
	TotalCost     int     `json:"total_cost"`
	Method        string  `json:"transportation_method"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time"`
	StayMinutes   int     `json:"stay_duration_minutes"`
}

// PlanResult is the wire shape of a computed route. An empty Route means no
// feasible plan was found; it is a well-formed result, not an error.
type PlanResult struct {
	Route []RouteStop `json:"route"`
}

// PlanMetrics summarizes one search run.
type PlanMetrics struct {
	Iterations   int     `json:"iterations"`
	Valid        int     `json:"valid"`
	Discarded    int     `json:"discarded"`
	Improvements int     `json:"improvements"`
	BestScore    float64 `json:"bestScore"`
	ElapsedMs    int64   `json:"elapsedMs"`
}

// Plan is a persisted planning result.
type Plan struct {
	ID        string      `json:"id"`
	Area      string      `json:"area"`
	Budget    int         `json:"budget"`
	Days      int         `json:"days"`
	People    int         `json:"people"`
	StartTime string      `json:"start_time"`
	Score     float64     `json:"score"`
	Route     []RouteStop `json:"route"`
	Metrics   PlanMetrics `json:"metrics"`
	CreatedAt string      `json:"created_at,omitempty"`
}

// PlanEvent is published on the event broker whenever the search driver
// finds a better candidate.
type PlanEvent struct {
	PlanID    string  `json:"plan_id"`
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
	Stops     int     `json:"stops"`
	TotalCost int     `json:"total_cost"`
	TS        string  `json:"ts"`
	Terminal  bool    `json:"terminal,omitempty"`
}

type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

// CollectRequest kicks a places-backed catalog collection for one area.
type CollectRequest struct {
	Area   string   `json:"area"`
	Center GeoPoint `json:"center"`
}

// CollectSummary reports the outcome of a collection run.
type CollectSummary struct {
	Area        string `json:"area"`
	Attractions int    `json:"attractions"`
	Lodgings    int    `json:"lodgings"`
	Stored      int    `json:"stored"`
}

// IngestRequest kicks a travel-table estimation batch for one area.
type IngestRequest struct {
	Area string `json:"area"`
}

// IngestSummary reports the outcome of an estimation batch.
type IngestSummary struct {
	Area      string `json:"area"`
	Pairs     int    `json:"pairs"`
	Estimated int    `json:"estimated"`
	CacheHits int    `json:"cacheHits"`
	Fallbacks int    `json:"fallbacks"`
	Stored    int    `json:"stored"`
}
