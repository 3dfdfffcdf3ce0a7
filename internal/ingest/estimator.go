// Package ingest populates the travel-cost/time tables the planner
// consumes: it pairs up an area's destinations, asks a language-model
// estimator for fare/method/time per pair, and stores the results. Per-item
// failures fall back to fixed defaults instead of failing the batch.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tripnav/internal/model"
)

// Estimate is one fare/method/time guess for a directed pair.
type Estimate struct {
	Method      string `json:"method"`
	Fare        int    `json:"fare"`
	TimeMinutes int    `json:"time"`
}

// DefaultEstimate substitutes for any per-pair estimation failure.
var DefaultEstimate = Estimate{Method: "public transit", Fare: 300, TimeMinutes: 30}

// maxTravelMinutes caps an estimated leg; anything longer is implausible
// for area-internal travel and would poison the feasibility windows.
const maxTravelMinutes = 120

// Estimator produces a travel estimate between two destinations.
type Estimator interface {
	Estimate(ctx context.Context, from, to model.Destination) (Estimate, error)
}

// ChatEstimator asks an OpenAI-compatible chat-completions endpoint to
// reason out fare and duration, then parses the labeled lines of its reply.
type ChatEstimator struct {
	BaseURL string // e.g. https://api.openai.com/v1
	APIKey  string
	Model   string
	HTTP    *http.Client
}

func NewChatEstimator(baseURL, apiKey, modelName string) *ChatEstimator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &ChatEstimator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   modelName,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (e *ChatEstimator) Estimate(ctx context.Context, from, to model.Destination) (Estimate, error) {
	prompt := fmt.Sprintf(
		"Estimate step by step the total public-transport cost of traveling from %s (address: %s) to %s (address: %s).\n"+
			"Finish with exactly these three lines:\n"+
			"method: (the main mode used: walk, bus, train or plane)\n"+
			"fare: (total fare as a plain integer)\n"+
			"time: (duration in minutes as a plain integer)\n",
		from.Name, from.Address, to.Name, to.Address)

	body, err := json.Marshal(chatRequest{
		Model: e.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an expert at estimating local transit fares and durations."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   1024,
	})
	if err != nil {
		return Estimate{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Estimate{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	resp, err := e.HTTP.Do(req)
	if err != nil {
		return Estimate{}, fmt.Errorf("ingest: estimate %s -> %s: %w", from.Name, to.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Estimate{}, fmt.Errorf("ingest: estimate %s -> %s: status %d", from.Name, to.Name, resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Estimate{}, fmt.Errorf("ingest: decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return Estimate{}, fmt.Errorf("ingest: empty completion for %s -> %s", from.Name, to.Name)
	}
	return parseEstimate(out.Choices[0].Message.Content), nil
}

// parseEstimate extracts the labeled lines, substituting defaults for
// anything missing or non-numeric. The time value is capped.
func parseEstimate(content string) Estimate {
	est := DefaultEstimate
	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(lower, "method:"):
			if v := strings.TrimSpace(line[strings.Index(line, ":")+1:]); v != "" {
				est.Method = v
			}
		case strings.HasPrefix(lower, "fare:"):
			if n, ok := digits(lower); ok {
				est.Fare = n
			}
		case strings.HasPrefix(lower, "time:"):
			if n, ok := digits(lower); ok {
				if n > maxTravelMinutes {
					n = maxTravelMinutes
				}
				est.TimeMinutes = n
			}
		}
	}
	return est
}

func digits(s string) (int, bool) {
	n := 0
	found := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			found = true
		}
	}
	return n, found
}
