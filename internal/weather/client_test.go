package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecastBody = `{
  "timezone": "Asia/Tokyo",
  "current": {"time": "2025-04-01T09:00", "temperature_2m": 14.2, "weather_code": 1, "wind_speed_10m": 6.5},
  "daily": {
    "time": ["2025-04-01", "2025-04-02", "2025-04-03"],
    "temperature_2m_max": [18.1, 17.4, 15.0],
    "temperature_2m_min": [9.2, 8.8, 7.1],
    "weather_code": [1, 61, 3]
  }
}`

func newForecastServer(t *testing.T, status int, body string) (*httptest.Server, *int32, chan *http.Request) {
	t.Helper()
	var calls int32
	reqs := make(chan *http.Request, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		reqs <- r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, reqs
}

func TestClient_FetchRelative(t *testing.T) {
	srv, _, reqs := newForecastServer(t, http.StatusOK, forecastBody)
	c := NewClient(srv.URL, nil)

	w, err := c.Fetch(context.Background(), Query{Lat: 35.2, Lon: 139.1, Days: 3})
	require.NoError(t, err)
	require.NotNil(t, w)

	r := <-reqs
	assert.Equal(t, "3", r.URL.Query().Get("forecast_days"))
	assert.Empty(t, r.URL.Query().Get("start_date"))
	assert.Equal(t, "Asia/Tokyo", w.Timezone)
	require.NotNil(t, w.Current)
	assert.Equal(t, 1, w.Current.WeatherCode)
	assert.Len(t, w.Daily.Time, 3)
	require.Len(t, w.Daily.WeatherCode, 3)
	for i, want := range []int{1, 61, 3} {
		require.NotNil(t, w.Daily.WeatherCode[i])
		assert.Equal(t, want, *w.Daily.WeatherCode[i])
	}
}

func TestClient_FetchAnchored(t *testing.T) {
	srv, _, reqs := newForecastServer(t, http.StatusOK, forecastBody)
	c := NewClient(srv.URL, nil)

	_, err := c.Fetch(context.Background(), Query{Lat: 35.2, Lon: 139.1, StartDate: date(2025, 4, 1), TripLength: 3})
	require.NoError(t, err)

	q := (<-reqs).URL.Query()
	assert.Equal(t, "2025-04-01", q.Get("start_date"))
	assert.Equal(t, "2025-04-03", q.Get("end_date"))
	assert.Empty(t, q.Get("forecast_days"))
}

func TestClient_FetchCaches(t *testing.T) {
	srv, calls, _ := newForecastServer(t, http.StatusOK, forecastBody)
	c := NewClient(srv.URL, nil)
	q := Query{Lat: 35.2, Lon: 139.1, Days: 3}

	first, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, first, second)
}

func TestClient_FetchUpstreamError(t *testing.T) {
	srv, calls, _ := newForecastServer(t, http.StatusBadRequest,
		`{"error": true, "reason": "Parameter 'start_date' is out of allowed range"}`)
	c := NewClient(srv.URL, nil)
	q := Query{Lat: 35.2, Lon: 139.1, StartDate: date(2031, 1, 1), TripLength: 2}

	w, err := c.Fetch(context.Background(), q)
	assert.Nil(t, w)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "out of allowed range")

	// Failures are not cached.
	_, _ = c.Fetch(context.Background(), q)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestClient_FetchMalformed(t *testing.T) {
	srv, _, _ := newForecastServer(t, http.StatusOK, `{"daily": [}`)
	c := NewClient(srv.URL, nil)

	w, err := c.Fetch(context.Background(), Query{Lat: 1, Lon: 2, Days: 1})
	assert.Nil(t, w)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_FetchWithoutDaily(t *testing.T) {
	srv, _, _ := newForecastServer(t, http.StatusOK,
		`{"timezone": "Asia/Tokyo", "current": {"temperature_2m": 3.0, "weather_code": 71, "wind_speed_10m": 2.0}}`)
	c := NewClient(srv.URL, nil)

	w, err := c.Fetch(context.Background(), Query{Lat: 43.06, Lon: 141.35, Days: 7})
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Empty(t, w.Daily.Time)
	require.NotNil(t, w.Current)

	s := Present(w, nil, 0, 7)
	assert.Empty(t, s.Days)
	require.NotNil(t, s.Current)
	assert.Equal(t, "弱い雪", s.Current.Label)
}

func TestClient_FirstCallerCancelDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write([]byte(forecastBody))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, nil)
	q := Query{Lat: 35.2, Lon: 139.1, Days: 3}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctxA, q)
		errA <- err
	}()
	<-started

	type result struct {
		w   *Window
		err error
	}
	resB := make(chan result, 1)
	go func() {
		w, err := c.Fetch(context.Background(), q)
		resB <- result{w, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	require.NotNil(t, b.w)
	assert.Len(t, b.w.Daily.Time, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
