package planner

import (
	"time"

	"tripnav/internal/catalog"
	"tripnav/internal/model"
)

// formatRoute flattens the per-day stop sequence into the external route
// shape, mapping day-relative minute offsets onto absolute instants. The
// depot stop resolves through the index's synthesized origin record.
func formatRoute(idx *catalog.Index, itin Itinerary, start time.Time) []model.RouteStop {
	route := make([]model.RouteStop, 0, len(itin)*4)
	for dayIdx, plan := range itin {
		dayOffset := dayIdx * minutesPerDay
		for _, s := range plan {
			name := "unknown"
			var loc model.GeoPoint
			if d, ok := idx.ByID(s.DestinationID); ok {
				loc = d.Location
				switch {
				case d.LocalName != "":
					name = d.LocalName
				case d.Name != "":
					name = d.Name
				}
			}
			route = append(route, model.RouteStop{
				Lat:           loc.Lat,
				Lng:           loc.Lng,
				Name:          name,
				TotalCost:     s.TotalCost,
				Method:        s.Method,
				DepartureTime: start.Add(time.Duration(s.DepartureOffset+dayOffset) * time.Minute).Format(time.RFC3339),
				ArrivalTime:   start.Add(time.Duration(s.ArrivalOffset+dayOffset) * time.Minute).Format(time.RFC3339),
				StayMinutes:   s.StayTime,
			})
		}
	}
	return route
}
