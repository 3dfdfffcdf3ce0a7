package api

import "testing"

func TestPathLabel(t *testing.T) {
	cases := map[string]string{
		"/v1/plan":                        "/v1/plan",
		"/v1/plans":                       "/v1/plans",
		"/v1/plans/abc-123":               "/v1/plans/:id",
		"/v1/plans/abc-123/events/stream": "/v1/plans/:id/events/stream",
		"/v1/subscriptions/xyz":           "/v1/subscriptions/:id",
		"/v1/areas/osaka/destinations":    "/v1/areas/:id/destinations",
		"/healthz":                        "/healthz",
	}
	for in, want := range cases {
		if got := pathLabel(in); got != want {
			t.Fatalf("pathLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
