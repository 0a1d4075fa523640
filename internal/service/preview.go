package service

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"tabiplan/internal/geo"
	"tabiplan/internal/maps"
	"tabiplan/internal/types"
	"tabiplan/internal/weather"
)

// Notices shown in place of data that could not be produced.
const (
	NoticeLocationUnresolved  = "位置情報を取得できませんでした"
	NoticeLocationUnavailable = "位置情報サービスに接続できませんでした"
	NoticeWeatherUnavailable  = "天気予報を取得できませんでした"
	NoticeWeatherEmpty        = "表示できる天気予報がありません"
)

// Preview is the location, weather and access overlay for one place.
// Every outcome is explicit: a nil field is paired with a notice.
type Preview struct {
	Candidate      types.DestinationCandidate `json:"candidate"`
	Query          string                     `json:"query"`
	Coordinates    *geo.Coordinates           `json:"coordinates,omitempty"`
	Forecast       *weather.Summary           `json:"forecast,omitempty"`
	Access         *maps.Estimate             `json:"access,omitempty"`
	DistanceKm     *float64                   `json:"distance_km,omitempty"`
	LocationNotice string                     `json:"location_notice,omitempty"`
	WeatherNotice  string                     `json:"weather_notice,omitempty"`
}

// Forecast builds a standalone preview for place. startDate is optional
// (YYYY-MM-DD); days is the trip length when anchored and the forecast
// length otherwise, falling back to the configured default when zero.
func (p *Planner) Forecast(ctx context.Context, place, startDate string, days int) (*Preview, error) {
	start, err := types.ParseStartDate(startDate)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = p.weatherDays
		if start != nil {
			days = 1
		}
	}
	pv := p.preview(ctx, types.DestinationCandidate{Place: place}, "", nil, start, days, days)
	return &pv, nil
}

func (p *Planner) previewAll(ctx context.Context, candidates []types.DestinationCandidate, residence string, start *time.Time, tripLength int) []Preview {
	out := make([]Preview, len(candidates))
	origin := p.locateResidence(ctx, residence)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			out[i] = p.preview(gctx, c, residence, origin, start, tripLength, p.weatherDays)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// locateResidence resolves the traveller's home once per batch. A miss only
// means previews go without a straight-line distance.
func (p *Planner) locateResidence(ctx context.Context, residence string) *geo.Coordinates {
	if residence == "" {
		return nil
	}
	coords, err := p.locator.Lookup(ctx, residence)
	if err != nil {
		p.logger.Info("residence lookup failed", "residence", residence, "err", err)
		return nil
	}
	return coords
}

// preview runs place name -> coordinates -> forecast -> display rows. It never
// fails; each missing piece is reported as a notice.
func (p *Planner) preview(ctx context.Context, c types.DestinationCandidate, residence string, origin *geo.Coordinates, start *time.Time, tripLength, relativeDays int) Preview {
	pv := Preview{Candidate: c, Query: geo.Normalize(c.Place)}

	if p.access != nil && residence != "" && pv.Query != "" {
		if est, err := p.access.GetTravelEstimate(ctx, residence, pv.Query); err != nil {
			p.logger.Info("access estimate unavailable", "origin", residence, "destination", pv.Query, "err", err)
		} else {
			pv.Access = &est
		}
	}

	coords, err := p.locator.Lookup(ctx, c.Place)
	switch {
	case err != nil:
		pv.LocationNotice = NoticeLocationUnavailable
		return pv
	case coords == nil:
		pv.LocationNotice = NoticeLocationUnresolved
		return pv
	}
	pv.Coordinates = coords
	if origin != nil {
		km := math.Round(geo.DistanceKm(*origin, *coords)*10) / 10
		pv.DistanceKm = &km
	}

	q := weather.Query{Lat: coords.Lat, Lon: coords.Lon, Days: relativeDays, StartDate: start, TripLength: tripLength}
	w, err := p.forecasts.Fetch(ctx, q)
	if err != nil {
		pv.WeatherNotice = NoticeWeatherUnavailable
		return pv
	}

	summary := weather.Present(w, start, tripLength, q.Span())
	if summary.Empty() {
		pv.WeatherNotice = NoticeWeatherEmpty
		return pv
	}
	pv.Forecast = &summary
	return pv
}
