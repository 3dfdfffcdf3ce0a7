package api

import (
	"fmt"
	"time"

	"tripnav/internal/model"
)

// startTimeLayouts are accepted in order for PlanRequest.StartTime. Zoned
// RFC3339 is canonical; the bare forms are assumed local.
var startTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseStartTime(s string) (time.Time, error) {
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start_time: %q", s)
}

// validatePlanRequest rejects malformed inputs only. Degenerate but
// well-formed requests (zero budget, zero days) pass and plan to an empty
// route.
func validatePlanRequest(req *model.PlanRequest) error {
	if req.Area == "" {
		return fmt.Errorf("area is required")
	}
	if req.Budget < 0 {
		return fmt.Errorf("budget must be >= 0")
	}
	if req.Days < 0 {
		return fmt.Errorf("days must be >= 0")
	}
	if req.People < 0 {
		return fmt.Errorf("people must be >= 0")
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if req.StartTime == "" {
		return fmt.Errorf("start_time is required")
	}
	if _, err := parseStartTime(req.StartTime); err != nil {
		return err
	}
	return nil
}
