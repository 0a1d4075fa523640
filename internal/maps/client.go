// Package maps wraps the Google Maps Platform APIs used by the planner.
package maps

import (
	"fmt"

	"googlemaps.github.io/maps"
)

// NewClient creates a Google Maps client with the given API Key.
func NewClient(apiKey string) (*maps.Client, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}
