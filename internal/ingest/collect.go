package ingest

import (
	"context"
	"errors"
	"fmt"

	"tripnav/internal/model"
	"tripnav/internal/store"
)

// collectedStayMinutes is the stay time given to freshly collected
// attractions; the nearby-search response carries no visit duration.
const collectedStayMinutes = 60

// Collect gathers an area's catalog from the places API: a grid search for
// attractions plus one for lodgings, since a catalog without hotels can
// never plan past the first night. New destinations are numbered after the
// area's current maximum id and upserted.
func (r *Runner) Collect(ctx context.Context, area string, center model.GeoPoint) (model.CollectSummary, error) {
	summary := model.CollectSummary{Area: area}
	if r.Places == nil {
		return summary, errors.New("ingest: no places client configured")
	}

	spots, err := r.Places.SearchAttractions(ctx, center)
	if err != nil {
		return summary, fmt.Errorf("ingest: collect attractions for %q: %w", area, err)
	}
	hotels, err := r.Places.SearchLodgings(ctx, center)
	if err != nil {
		return summary, fmt.Errorf("ingest: collect lodgings for %q: %w", area, err)
	}
	for i := range spots {
		spots[i].StayTime = collectedStayMinutes
	}
	summary.Attractions = len(spots)
	summary.Lodgings = len(hotels)

	existing, err := r.Store.GetDestinations(ctx, area)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return summary, fmt.Errorf("ingest: load %q: %w", area, err)
	}
	nextID := 1
	for _, d := range existing {
		if d.ID >= nextID {
			nextID = d.ID + 1
		}
	}

	all := AssignIDs(append(spots, hotels...), nextID)
	stored, err := r.Store.UpsertDestinations(ctx, area, all)
	if err != nil {
		return summary, fmt.Errorf("ingest: store %q: %w", area, err)
	}
	summary.Stored = stored
	return summary, nil
}
