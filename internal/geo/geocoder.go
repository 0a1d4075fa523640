package geo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout bounds a single backend lookup.
	DefaultTimeout = 8 * time.Second
	// DefaultTTL is how long a resolved place stays cached; place names barely move.
	DefaultTTL = time.Hour
)

var (
	// ErrUpstream marks transport failures and HTTP errors from a geocoding backend.
	ErrUpstream = errors.New("geocoding service unavailable")
	// ErrMalformedResponse marks a payload that could not be decoded.
	ErrMalformedResponse = errors.New("malformed geocoding response")
)

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Backend performs one address search. It returns nil, nil when the service
// answered but had no usable match.
type Backend interface {
	Search(ctx context.Context, query string) (*Coordinates, error)
}

// Geocoder normalizes place names, queries a Backend and caches hits.
type Geocoder struct {
	backend Backend
	cache   *cache.Cache
	group   singleflight.Group
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeocoder wraps backend with normalization and a one-hour cache.
func NewGeocoder(backend Backend, logger *slog.Logger) *Geocoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Geocoder{
		backend: backend,
		cache:   cache.New(DefaultTTL, 10*time.Minute),
		timeout: DefaultTimeout,
		logger:  logger,
	}
}

// Lookup resolves raw to coordinates.
//
// nil, nil means "absent": the name normalized to nothing, or the backend had
// no usable match. nil, err means the backend failed; the failure is already
// logged and callers are expected to degrade rather than abort. Successful
// results are cached by the raw input.
func (g *Geocoder) Lookup(ctx context.Context, raw string) (*Coordinates, error) {
	if v, ok := g.cache.Get(raw); ok {
		c := v.(Coordinates)
		return &c, nil
	}

	query := Normalize(raw)
	if query == "" {
		return nil, nil
	}

	// The shared search outlives any one caller so joiners and the cache
	// still get its result when the first caller goes away.
	ch := g.group.DoChan(raw, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()

		c, err := g.backend.Search(ctx, query)
		switch {
		case errors.Is(err, ErrMalformedResponse):
			g.logger.Warn("geocode response unusable", "query", query, "err", err)
			return (*Coordinates)(nil), nil
		case err != nil:
			g.logger.Warn("geocode failed", "query", query, "err", err)
			return nil, err
		case c == nil:
			g.logger.Info("geocode found nothing", "query", query)
			return (*Coordinates)(nil), nil
		}
		g.cache.Set(raw, *c, cache.DefaultExpiration)
		return c, nil
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
	c, _ := res.Val.(*Coordinates)
	if c == nil {
		return nil, nil
	}
	out := *c
	return &out, nil
}
