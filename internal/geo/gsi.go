package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// DefaultGSIEndpoint is the 国土地理院 address search API.
const DefaultGSIEndpoint = "https://msearch.gsi.go.jp/address-search/AddressSearch"

const userAgent = "tabiplan/1.0"

// GSIBackend queries the GSI address search. It needs no API key and covers
// Japanese place names well, which is why it is the default backend.
type GSIBackend struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGSIBackend returns a backend for endpoint (DefaultGSIEndpoint when empty).
// Outbound requests are limited to a few per second to stay polite to the public service.
func NewGSIBackend(endpoint string) *GSIBackend {
	if endpoint == "" {
		endpoint = DefaultGSIEndpoint
	}
	return &GSIBackend{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
}

type gsiFeature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Title string `json:"title"`
	} `json:"properties"`
}

// Search returns the first feature's coordinates. GSI orders them [lon, lat].
func (b *GSIBackend) Search(ctx context.Context, query string) (*Coordinates, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+url.Values{"q": {query}}.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gsi: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var features []gsiFeature
	if err := json.NewDecoder(resp.Body).Decode(&features); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(features) == 0 {
		return nil, nil
	}
	c := features[0].Geometry.Coordinates
	if len(c) < 2 {
		return nil, nil
	}
	return &Coordinates{Lat: c[1], Lon: c[0]}, nil
}
