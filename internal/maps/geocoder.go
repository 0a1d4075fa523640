package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"tabiplan/internal/geo"
)

// Geocoder is a geo.Backend backed by the Google Geocoding API. It is used for
// international destinations, which the GSI search does not cover.
type Geocoder struct {
	client *maps.Client
}

// NewGeocoder returns a Geocoder sharing client.
func NewGeocoder(client *maps.Client) *Geocoder {
	return &Geocoder{client: client}
}

// Search returns the first result's location, or nil when nothing matched.
func (g *Geocoder) Search(ctx context.Context, query string) (*geo.Coordinates, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  query,
		Language: "ja",
		Region:   "jp",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", geo.ErrUpstream, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	loc := results[0].Geometry.Location
	return &geo.Coordinates{Lat: loc.Lat, Lon: loc.Lng}, nil
}
