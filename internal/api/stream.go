package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tripnav/internal/model"
	"tripnav/internal/store"
)

// streamPlanEvents serves the SSE progress stream for one plan id. Clients
// that supply their own plan_id on POST /v1/plan can attach here before the
// search starts; the stream closes after the terminal event.
func (s *Server) streamPlanEvents(w http.ResponseWriter, r *http.Request, planID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(planID)
	defer s.Broker.Unsubscribe(planID, ch)

	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"plan_id\":%q,\"ts\":%q}\n\n", planID, time.Now().UTC().Format(time.RFC3339))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			b, _ := json.Marshal(evt)
			if evt.Terminal {
				fmt.Fprintf(w, "event: plan.completed\n")
			} else {
				fmt.Fprintf(w, "event: plan.progress\n")
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
			if evt.Terminal {
				return
			}
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"plan_id\":%q,\"ts\":%q}\n\n", planID, time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// PlanWSHandler handles /v1/plan/ws: the client sends one plan request and
// receives progress frames while the search runs, then the completed plan.
func (s *Server) PlanWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	var req model.PlanRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(wsEnvelope{Type: "error", Error: "invalid plan request"})
		return
	}
	if err := validatePlanRequest(&req); err != nil {
		_ = conn.WriteJSON(wsEnvelope{Type: "error", Error: err.Error()})
		return
	}
	planID := req.PlanID
	if planID == "" {
		planID = uuid.NewString()
	}

	// Drain progress events into socket frames while the search runs.
	ch := s.Broker.Subscribe(planID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range ch {
			b, _ := json.Marshal(evt)
			if err := conn.WriteJSON(wsEnvelope{Type: "progress", Payload: b}); err != nil {
				return
			}
			if evt.Terminal {
				return
			}
		}
	}()

	plan, err := s.runPlan(r.Context(), planID, req)
	s.Broker.Unsubscribe(planID, ch)
	// A failed run never publishes a terminal event, so bound the wait.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	if err != nil {
		detail := err.Error()
		if errors.Is(err, store.ErrNotFound) {
			detail = "unknown area " + req.Area
		}
		_ = conn.WriteJSON(wsEnvelope{Type: "error", Error: detail})
		return
	}
	saved, err := s.Store.SavePlan(r.Context(), plan)
	if err != nil {
		_ = conn.WriteJSON(wsEnvelope{Type: "error", Error: err.Error()})
		return
	}
	b, _ := json.Marshal(saved)
	_ = conn.WriteJSON(wsEnvelope{Type: "plan", Payload: b})
}
