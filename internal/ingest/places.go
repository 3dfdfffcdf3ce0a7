package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"tripnav/internal/model"
)

// PlacesClient collects destination candidates for an area from a Places
// nearby-search API, querying a grid of circles around the area center so
// dense neighborhoods are not truncated by per-query result caps.
type PlacesClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client

	GridDim      int     // grid is GridDim x GridDim points
	StepKm       float64 // spacing between grid points
	RadiusMeters float64 // search radius per grid point
	MaxResults   int     // cap on unique places returned
}

func NewPlacesClient(apiKey string) *PlacesClient {
	return &PlacesClient{
		APIKey:       apiKey,
		BaseURL:      "https://places.googleapis.com/v1/places:searchNearby",
		HTTP:         &http.Client{Timeout: 15 * time.Second},
		GridDim:      4,
		StepKm:       10,
		RadiusMeters: 15000,
		MaxResults:   100,
	}
}

// gridPoints spreads GridDim x GridDim centers around the area center. One
// degree of latitude is ~111 km; longitude shrinks with cos(lat).
func (c *PlacesClient) gridPoints(center model.GeoPoint) []model.GeoPoint {
	stepLat := c.StepKm / 111.0
	stepLng := c.StepKm / (111.0 * math.Cos(center.Lat*math.Pi/180))
	offset := float64(c.GridDim-1) / 2
	pts := make([]model.GeoPoint, 0, c.GridDim*c.GridDim)
	for i := 0; i < c.GridDim; i++ {
		for j := 0; j < c.GridDim; j++ {
			pts = append(pts, model.GeoPoint{
				Lat: center.Lat + (float64(i)-offset)*stepLat,
				Lng: center.Lng + (float64(j)-offset)*stepLng,
			})
		}
	}
	return pts
}

type nearbyResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		PrimaryTypeDisplayName struct {
			Text string `json:"text"`
		} `json:"primaryTypeDisplayName"`
		Rating           float64 `json:"rating"`
		AdrFormatAddress string  `json:"adrFormatAddress"`
		Location         struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	} `json:"places"`
}

// SearchAttractions returns up to MaxResults unique tourist attractions
// around the center. Per-point query failures are skipped, not fatal: a
// partial grid still yields a usable catalog.
func (c *PlacesClient) SearchAttractions(ctx context.Context, center model.GeoPoint) ([]model.Destination, error) {
	return c.search(ctx, center, "tourist_attraction", false)
}

// SearchLodgings runs the same grid search for hotels. A catalog without
// hotels can never produce a feasible multi-day itinerary, so collection
// always pairs this with SearchAttractions.
func (c *PlacesClient) SearchLodgings(ctx context.Context, center model.GeoPoint) ([]model.Destination, error) {
	return c.search(ctx, center, "lodging", true)
}

func (c *PlacesClient) search(ctx context.Context, center model.GeoPoint, includedType string, hotel bool) ([]model.Destination, error) {
	seen := map[string]bool{}
	var out []model.Destination
	for _, pt := range c.gridPoints(center) {
		payload := map[string]any{
			"locationRestriction": map[string]any{
				"circle": map[string]any{
					"center": map[string]float64{"latitude": pt.Lat, "longitude": pt.Lng},
					"radius": c.RadiusMeters,
				},
			},
			"includedTypes":  []string{includedType},
			"maxResultCount": 10,
		}
		body, _ := json.Marshal(payload)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.APIKey)
		req.Header.Set("X-Goog-FieldMask",
			"places.id,places.displayName,places.primaryTypeDisplayName,places.rating,places.adrFormatAddress,places.location")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			continue
		}
		var nr nearbyResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&nr)
		resp.Body.Close()
		if decodeErr != nil || resp.StatusCode != http.StatusOK {
			continue
		}
		for _, p := range nr.Places {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, model.Destination{
				Name:     p.DisplayName.Text,
				Category: p.PrimaryTypeDisplayName.Text,
				Rating:   p.Rating,
				Address:  p.AdrFormatAddress,
				Location: model.GeoPoint{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
				IsHotel:  hotel,
			})
			if len(out) >= c.MaxResults {
				return out, nil
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ingest: places search returned nothing around %.4f,%.4f", center.Lat, center.Lng)
	}
	return out, nil
}

// AssignIDs numbers freshly collected destinations after the current
// maximum so ids stay unique across areas.
func AssignIDs(dests []model.Destination, nextID int) []model.Destination {
	if nextID <= 0 {
		nextID = 1
	}
	out := make([]model.Destination, len(dests))
	for i, d := range dests {
		d.ID = nextID
		nextID++
		out[i] = d
	}
	return out
}
