package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tabiplan/internal/ai"
	"tabiplan/internal/geo"
	"tabiplan/internal/maps"
	"tabiplan/internal/modules/session"
	"tabiplan/internal/types"
	"tabiplan/internal/weather"
)

const threeSuggestions = "```json\n" + `{"suggestions":[
 {"place":"箱根（仙石原）エリア","summary":"温泉とススキ","reason":"近い"},
 {"place":"日光","summary":"世界遺産","reason":"文化体験"},
 {"place":"軽井沢周辺","summary":"高原","reason":"涼しい"}
]}` + "\n```"

// fakeLLM returns scripted replies in order and records every request.
type fakeLLM struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	requests []ai.CompletionRequest
	delay    time.Duration
	inFlight int32
	overlap  int32
}

func (f *fakeLLM) Model() string { return "fake" }

func (f *fakeLLM) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.inFlight, -1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	req.Messages = append([]ai.Message{}, req.Messages...)
	f.requests = append(f.requests, req)
	n := len(f.requests) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	if n < len(f.replies) {
		return f.replies[n], nil
	}
	return "plan", nil
}

func (f *fakeLLM) request(i int) ai.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

type fakeLocator struct {
	mu      sync.Mutex
	coords  map[string]*geo.Coordinates
	failFor map[string]bool
	queries []string
}

func (f *fakeLocator) Lookup(_ context.Context, raw string) (*geo.Coordinates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, raw)
	if f.failFor[raw] {
		return nil, geo.ErrUpstream
	}
	return f.coords[geo.Normalize(raw)], nil
}

type fakeForecasts struct {
	mu      sync.Mutex
	window  *weather.Window
	err     error
	queries []weather.Query
}

func (f *fakeForecasts) Fetch(_ context.Context, q weather.Query) (*weather.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.window, f.err
}

type fakeAccess struct{}

func (fakeAccess) GetTravelEstimate(_ context.Context, origin, dest string) (maps.Estimate, error) {
	if dest == "日光" {
		return maps.Estimate{}, errors.New("no route found")
	}
	return maps.Estimate{Minutes: 90, Distance: "85 km"}, nil
}

func sampleWindow() *weather.Window {
	return &weather.Window{
		Current: &weather.Current{Temperature: 15, WeatherCode: 1, WindSpeed: 3},
		Daily: weather.Daily{
			Time:           []string{"2025-04-01", "2025-04-02", "2025-04-03"},
			TemperatureMax: floats(18, 19, 20),
			TemperatureMin: floats(8, 9, 10),
			WeatherCode:    ints(0, 1, 61),
		},
	}
}

func floats(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		out[i] = &vs[i]
	}
	return out
}

func ints(vs ...int) []*int {
	out := make([]*int, len(vs))
	for i := range vs {
		out[i] = &vs[i]
	}
	return out
}

func validTrip() types.TripRequest {
	return types.TripRequest{
		Mood:      "のんびりリラックス",
		Companion: "家族",
		Scope:     "国内",
		Budget:    "3万円〜5万円",
		Duration:  "2泊3日",
		Residence: "東京都",
		Request:   "温泉に入りたい",
		StartDate: "2025-04-01",
	}
}

type harness struct {
	planner   *Planner
	llm       *fakeLLM
	locator   *fakeLocator
	forecasts *fakeForecasts
	sessions  *session.MemoryStore
}

func newHarness(llm *fakeLLM) *harness {
	h := &harness{
		llm: llm,
		locator: &fakeLocator{coords: map[string]*geo.Coordinates{
			"箱根":  {Lat: 35.23, Lon: 139.10},
			"日光":  {Lat: 36.72, Lon: 139.69},
			"軽井沢": {Lat: 36.34, Lon: 138.63},
		}},
		forecasts: &fakeForecasts{window: sampleWindow()},
		sessions:  session.NewMemoryStore(time.Hour),
	}
	h.planner = NewPlanner(PlannerConfig{
		LLM:       llm,
		Sessions:  h.sessions,
		Locator:   h.locator,
		Forecasts: h.forecasts,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

func (h *harness) newSession() string {
	s, err := h.planner.CreateSession(context.Background())
	if err != nil {
		panic(err)
	}
	return s.ID
}
