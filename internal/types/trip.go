// README: Trip request value object and the option lists shared by the API and CLI.
package types

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInvalidTrip is wrapped by every TripRequest validation failure.
var ErrInvalidTrip = errors.New("invalid trip request")

// DateLayout is the wire format for start dates.
const DateLayout = "2006-01-02"

// PetCompanion is the companion option that restricts plans to pet-friendly venues.
const PetCompanion = "ペットと"

var (
	Companions = []string{"友人", "家族", "恋人", "一人旅", PetCompanion}
	Budgets    = []string{"気にしない", "1万円以下", "1万円〜3万円", "3万円〜5万円", "5万円～10万円", "10万円以上"}
	Moods      = []string{"のんびりリラックス", "アクティブ", "ロマンティック", "文化体験", "自然探索", "食べ歩き"}
	Scopes     = []string{"国内", "海外"}
	Durations  = []string{"日帰り", "1泊2日", "2泊3日", "3泊4日", "4泊5日", "5泊6日", "一週間以上"}
)

var durationDays = map[string]int{
	"日帰り":   1,
	"1泊2日":  2,
	"2泊3日":  3,
	"3泊4日":  4,
	"4泊5日":  5,
	"5泊6日":  6,
	"一週間以上": 7,
}

// FieldError names the offending field of a rejected TripRequest.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidTrip }

// TripRequest is what the user submits to get suggestions.
type TripRequest struct {
	Mood      string `json:"mood"`
	Companion string `json:"companion"`
	Scope     string `json:"scope"`
	Budget    string `json:"budget"`
	Duration  string `json:"duration"`
	Residence string `json:"residence"`
	Request   string `json:"request,omitempty"`
	StartDate string `json:"start_date,omitempty"`
}

// Length is the number of travel days implied by Duration, or 0 if unknown.
func (t TripRequest) Length() int {
	return durationDays[t.Duration]
}

// Start parses StartDate. It returns nil when no date was given.
func (t TripRequest) Start() (*time.Time, error) {
	return ParseStartDate(t.StartDate)
}

// HasPet reports whether the trip includes a pet.
func (t TripRequest) HasPet() bool { return t.Companion == PetCompanion }

// Validate checks the request before any upstream call is made.
func (t TripRequest) Validate() error {
	if strings.TrimSpace(t.Residence) == "" {
		return &FieldError{Field: "residence", Reason: "居住地を入力してください"}
	}
	if t.Length() == 0 {
		return &FieldError{Field: "duration", Reason: fmt.Sprintf("unknown duration %q", t.Duration)}
	}
	checks := []struct {
		field, value string
		allowed      []string
	}{
		{"companion", t.Companion, Companions},
		{"budget", t.Budget, Budgets},
		{"mood", t.Mood, Moods},
		{"scope", t.Scope, Scopes},
	}
	for _, c := range checks {
		if !slices.Contains(c.allowed, c.value) {
			return &FieldError{Field: c.field, Reason: fmt.Sprintf("unknown option %q", c.value)}
		}
	}
	if _, err := t.Start(); err != nil {
		return err
	}
	return nil
}

// ParseStartDate parses a YYYY-MM-DD date. Empty input yields nil.
func ParseStartDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, &FieldError{Field: "start_date", Reason: "expected YYYY-MM-DD"}
	}
	return &t, nil
}

// DestinationCandidate is one suggested destination.
type DestinationCandidate struct {
	Place   string `json:"place"`
	Summary string `json:"summary"`
	Reason  string `json:"reason"`
}
