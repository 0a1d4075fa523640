package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tabiplan/internal/ai"
	"tabiplan/internal/geo"
	"tabiplan/internal/maps"
	"tabiplan/internal/modules/session"
	"tabiplan/internal/types"
	"tabiplan/internal/weather"
)

const (
	// DefaultModelTimeout bounds one language-model call.
	DefaultModelTimeout = 90 * time.Second
	// DefaultWeatherDays is the relative-mode forecast length.
	DefaultWeatherDays = 7
	// previewConcurrency caps parallel candidate previews.
	previewConcurrency = 3
)

var (
	ErrInvalidTrip     = types.ErrInvalidTrip
	ErrSessionNotFound = session.ErrNotFound
	// ErrNoSuggestions means the model gave nothing usable for a batch.
	ErrNoSuggestions = errors.New("no destination suggestions")
	// ErrNoCandidates means a selection was attempted before any batch.
	ErrNoCandidates   = errors.New("no suggestions to choose from")
	ErrCandidateIndex = errors.New("candidate index out of range")
	// ErrNoDestination means chat was attempted before a destination was chosen.
	ErrNoDestination   = errors.New("no destination selected")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrNothingToExport = errors.New("no plan to export")
)

// Locator resolves a free-text place name. nil, nil means absent.
type Locator interface {
	Lookup(ctx context.Context, raw string) (*geo.Coordinates, error)
}

// ForecastSource fetches a forecast window.
type ForecastSource interface {
	Fetch(ctx context.Context, q weather.Query) (*weather.Window, error)
}

// AccessEstimator estimates travel time from the user's residence.
type AccessEstimator interface {
	GetTravelEstimate(ctx context.Context, origin, destination string) (maps.Estimate, error)
}

// PlannerConfig wires a Planner. LLM, Sessions, Locator and Forecasts are required.
type PlannerConfig struct {
	LLM       ai.LLMProvider
	Sessions  session.Store
	Locator   Locator
	Forecasts ForecastSource
	Access    AccessEstimator

	WeatherDays  int
	ModelTimeout time.Duration
	Logger       *slog.Logger
}

// Planner drives a session from trip submission through suggestions,
// destination choice and itinerary refinement.
type Planner struct {
	llm          ai.LLMProvider
	sessions     session.Store
	locator      Locator
	forecasts    ForecastSource
	access       AccessEstimator
	weatherDays  int
	modelTimeout time.Duration
	logger       *slog.Logger
	locks        sessionLocks
}

// NewPlanner creates a Planner, filling unset tunables with defaults.
func NewPlanner(cfg PlannerConfig) *Planner {
	p := &Planner{
		llm:          cfg.LLM,
		sessions:     cfg.Sessions,
		locator:      cfg.Locator,
		forecasts:    cfg.Forecasts,
		access:       cfg.Access,
		weatherDays:  cfg.WeatherDays,
		modelTimeout: cfg.ModelTimeout,
		logger:       cfg.Logger,
	}
	if p.weatherDays <= 0 {
		p.weatherDays = DefaultWeatherDays
	}
	if p.modelTimeout <= 0 {
		p.modelTimeout = DefaultModelTimeout
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// CreateSession starts an empty session.
func (p *Planner) CreateSession(ctx context.Context) (*session.Session, error) {
	s := session.New()
	if err := p.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession loads a session.
func (p *Planner) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return p.sessions.Get(ctx, id)
}

func (p *Planner) complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.modelTimeout)
	defer cancel()
	return p.llm.Complete(ctx, req)
}

// sessionLocks serializes work on one session id.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*lockEntry)
	}
	e, ok := l.m[id]
	if !ok {
		e = &lockEntry{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
