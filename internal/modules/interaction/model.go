// README: Interaction log of language-model calls (kind, model, latency, outcome).
package interaction

import "time"

// Kind labels what a model call was for.
type Kind string

const (
	KindSuggest   Kind = "suggest"
	KindItinerary Kind = "itinerary"
)

type Interaction struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      Kind      `json:"kind"`
	Model     string    `json:"model"`
	LatencyMS int64     `json:"latency_ms"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
