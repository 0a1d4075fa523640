// Package wiring builds the providers and upstream clients shared by the API server and the CLI.
package wiring

import (
	"context"
	"fmt"
	"log/slog"

	"tabiplan/internal/ai"
	"tabiplan/internal/config"
	"tabiplan/internal/geo"
	"tabiplan/internal/maps"
	"tabiplan/internal/service"
	"tabiplan/internal/weather"
)

// NewLLM returns the configured provider and a func releasing its resources.
func NewLLM(ctx context.Context, cfg config.Config) (ai.LLMProvider, func(), error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		p, err := ai.NewGeminiProvider(ctx, cfg.LLM.GeminiKey, cfg.LLM.Model)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case config.ProviderOpenAI:
		p, err := ai.NewOpenAIProvider(cfg.LLM.OpenAIKey, "", cfg.LLM.Model)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// Upstream groups the location, weather and access clients.
type Upstream struct {
	Geocoder *geo.Geocoder
	Weather  *weather.Client
	// Access is nil without a Google Maps key.
	Access service.AccessEstimator
}

// NewUpstream builds the geocoder for the configured backend, the forecast
// client and, when a Maps key is present, the access estimator.
func NewUpstream(cfg config.Config, logger *slog.Logger) (*Upstream, error) {
	u := &Upstream{Weather: weather.NewClient(cfg.Weather.Endpoint, logger)}

	var backend geo.Backend = geo.NewGSIBackend(cfg.Geocoder.Endpoint)
	if cfg.Maps.APIKey != "" {
		client, err := maps.NewClient(cfg.Maps.APIKey)
		if err != nil {
			return nil, err
		}
		u.Access = maps.NewRouteService(client)
		if cfg.Geocoder.Backend == config.GeocoderGoogle {
			backend = maps.NewGeocoder(client)
		}
	}
	u.Geocoder = geo.NewGeocoder(backend, logger)
	return u, nil
}
