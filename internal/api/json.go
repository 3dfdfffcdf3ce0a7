package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Problem is the RFC7807 body used for every error response. The planner
// core surfaces two client-facing failure classes that map onto it: an
// unknown area key becomes a 404, malformed planning input becomes a 400.
// An empty route is a valid plan, never a Problem.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeUnknownArea reports the catalog not-found condition for an area key.
func writeUnknownArea(w http.ResponseWriter, area, instance string) {
	writeProblem(w, http.StatusNotFound, "Unknown area", fmt.Sprintf("no catalog for area %q", area), instance)
}

// writeBadJSON reports an undecodable request body.
func writeBadJSON(w http.ResponseWriter, err error, instance string) {
	writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), instance)
}
