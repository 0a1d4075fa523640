package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

// Estimate is a door-to-door travel estimate.
type Estimate struct {
	Duration time.Duration `json:"-"`
	Minutes  int           `json:"minutes"`
	Distance string        `json:"distance"`
}

// RouteService handles interactions with the Google Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a RouteService sharing client.
func NewRouteService(client *maps.Client) *RouteService {
	return &RouteService{client: client}
}

// GetTravelEstimate returns the duration and distance for a trip from origin to destination.
// It assumes driving mode; transit coverage in Japan is not available through the API.
func (s *RouteService) GetTravelEstimate(ctx context.Context, origin, destination string) (Estimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Language:    "ja",
		Region:      "jp",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Estimate{}, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Estimate{}, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return Estimate{
		Duration: leg.Duration,
		Minutes:  int(leg.Duration.Round(time.Minute).Minutes()),
		Distance: leg.Distance.HumanReadable,
	}, nil
}
