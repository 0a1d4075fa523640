// README: Per-user planning session: trip, candidates, selection and itinerary conversation.
package session

import (
	"time"

	"github.com/google/uuid"

	"tabiplan/internal/ai"
	"tabiplan/internal/types"
)

// Session is the state carried between interactions. The conversation's
// first message, when present, is the system instruction and is never shown.
type Session struct {
	ID         string                       `json:"id"`
	Trip       *types.TripRequest           `json:"trip,omitempty"`
	Candidates []types.DestinationCandidate `json:"candidates"`
	Selected   string                       `json:"selected,omitempty"`
	Messages   []ai.Message                 `json:"messages"`
	CreatedAt  time.Time                    `json:"created_at"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}

// New returns an empty session with a fresh id.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		Candidates: []types.DestinationCandidate{},
		Messages:   []ai.Message{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ResetForSuggestions starts a new suggestion batch for trip. Earlier
// candidates, the selection and the conversation are discarded.
func (s *Session) ResetForSuggestions(trip types.TripRequest) {
	s.Trip = &trip
	s.Candidates = []types.DestinationCandidate{}
	s.Selected = ""
	s.Messages = []ai.Message{}
	s.touch()
}

// SetCandidates records the batch returned for the current trip.
func (s *Session) SetCandidates(c []types.DestinationCandidate) {
	s.Candidates = append([]types.DestinationCandidate{}, c...)
	s.touch()
}

// ResetForSelection commits place as the destination and clears the conversation.
func (s *Session) ResetForSelection(place string) {
	s.Selected = place
	s.Messages = []ai.Message{}
	s.touch()
}

// Append adds one turn to the conversation.
func (s *Session) Append(role ai.Role, content string) {
	s.Messages = append(s.Messages, ai.Message{Role: role, Content: content})
	s.touch()
}

// Visible returns the conversation without system turns.
func (s *Session) Visible() []ai.Message {
	out := make([]ai.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role != ai.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// LastAssistant returns the most recent assistant turn.
func (s *Session) LastAssistant() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == ai.RoleAssistant {
			return s.Messages[i].Content, true
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	if s.Trip != nil {
		t := *s.Trip
		c.Trip = &t
	}
	c.Candidates = append([]types.DestinationCandidate{}, s.Candidates...)
	c.Messages = append([]ai.Message{}, s.Messages...)
	return &c
}

func (s *Session) touch() { s.UpdatedAt = time.Now() }
