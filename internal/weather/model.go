// Package weather fetches Open-Meteo forecasts and shapes them for display.
package weather

import (
	"net/url"
	"strconv"
	"time"
)

// MaxForecastDays is Open-Meteo's forecast horizon.
const MaxForecastDays = 16

const dateLayout = "2006-01-02"

// Current is the "current" block of a forecast response.
type Current struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature_2m"`
	WeatherCode int     `json:"weather_code"`
	WindSpeed   float64 `json:"wind_speed_10m"`
}

// Daily holds the parallel daily arrays exactly as Open-Meteo returns them.
// The arrays are not guaranteed to have equal length, and a nil entry is a
// day the service reported as null.
type Daily struct {
	Time           []string   `json:"time"`
	TemperatureMax []*float64 `json:"temperature_2m_max"`
	TemperatureMin []*float64 `json:"temperature_2m_min"`
	WeatherCode    []*int     `json:"weather_code"`
}

// Window is a fetched forecast. Current is nil when the service omitted it.
type Window struct {
	Timezone string   `json:"timezone"`
	Current  *Current `json:"current,omitempty"`
	Daily    Daily    `json:"daily"`
}

// Query selects a forecast. When StartDate is set the request is anchored to
// an explicit date range of TripLength days; otherwise it asks for Days days
// from today.
type Query struct {
	Lat        float64
	Lon        float64
	Days       int
	StartDate  *time.Time
	TripLength int
}

// Anchored reports whether the query uses an explicit date range.
func (q Query) Anchored() bool { return q.StartDate != nil }

// Span is the number of days requested, capped at MaxForecastDays.
func (q Query) Span() int {
	n := q.Days
	if q.Anchored() {
		n = q.TripLength
	}
	return clamp(n, 1, MaxForecastDays)
}

// EndDate is the last requested date of an anchored query.
func (q Query) EndDate() time.Time {
	if !q.Anchored() {
		return time.Time{}
	}
	return q.StartDate.AddDate(0, 0, q.Span()-1)
}

// params builds the request parameters. Open-Meteo rejects forecast_days
// combined with start_date/end_date, so exactly one addressing mode is set.
func (q Query) params() url.Values {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(q.Lat, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(q.Lon, 'f', -1, 64))
	v.Set("current", "temperature_2m,weather_code,wind_speed_10m")
	v.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min")
	v.Set("timezone", "auto")
	if q.Anchored() {
		v.Set("start_date", q.StartDate.Format(dateLayout))
		v.Set("end_date", q.EndDate().Format(dateLayout))
	} else {
		v.Set("forecast_days", strconv.Itoa(q.Span()))
	}
	return v
}

func (q Query) cacheKey() string {
	start := ""
	if q.Anchored() {
		start = q.StartDate.Format(dateLayout)
	}
	return strconv.FormatFloat(q.Lat, 'f', 4, 64) + "," +
		strconv.FormatFloat(q.Lon, 'f', 4, 64) + "|" +
		strconv.Itoa(q.Span()) + "|" + start
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
