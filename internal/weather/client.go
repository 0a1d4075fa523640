package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultEndpoint is the Open-Meteo forecast API.
	DefaultEndpoint = "https://api.open-meteo.com/v1/forecast"
	// DefaultTimeout bounds one forecast request.
	DefaultTimeout = 8 * time.Second
	// DefaultTTL reflects how often forecasts meaningfully change.
	DefaultTTL = 15 * time.Minute
)

var (
	// ErrUpstream marks transport failures and non-2xx responses.
	ErrUpstream = errors.New("weather service unavailable")
	// ErrMalformedResponse marks a body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed weather response")
)

// Client fetches forecasts from Open-Meteo and caches them.
type Client struct {
	endpoint   string
	httpClient *http.Client
	cache      *cache.Cache
	group      singleflight.Group
	logger     *slog.Logger
}

// NewClient returns a client for endpoint (DefaultEndpoint when empty).
func NewClient(endpoint string, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cache:      cache.New(DefaultTTL, 5*time.Minute),
		logger:     logger,
	}
}

type apiError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Fetch returns the forecast for q. A nil window with an error means no
// forecast is available; the error is already logged. A response without a
// daily section is not an error: the window comes back with empty daily
// arrays so the current conditions are kept.
func (c *Client) Fetch(ctx context.Context, q Query) (*Window, error) {
	key := q.cacheKey()
	if v, ok := c.cache.Get(key); ok {
		return v.(*Window), nil
	}

	// Detached from the caller: whoever joins the flight still gets the window.
	ch := c.group.DoChan(key, func() (any, error) {
		w, err := c.fetch(context.WithoutCancel(ctx), q)
		if err != nil {
			c.logger.Warn("forecast fetch failed",
				"lat", q.Lat, "lon", q.Lon, "span", q.Span(), "anchored", q.Anchored(), "err", err)
			return nil, err
		}
		if len(w.Daily.Time) == 0 {
			c.logger.Info("forecast has no daily rows", "lat", q.Lat, "lon", q.Lon)
		}
		c.cache.Set(key, w, cache.DefaultExpiration)
		return w, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Val.(*Window), nil
}

func (c *Client) fetch(ctx context.Context, q Query) (*Window, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.params().Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && ae.Reason != "" {
			return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, ae.Reason)
		}
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var w Window
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &w, nil
}
