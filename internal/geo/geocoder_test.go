package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	queries []string
	result  *Coordinates
	err     error
}

func (f *fakeBackend) Search(_ context.Context, query string) (*Coordinates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.result, f.err
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGeocoder_EmptyNameSkipsBackend(t *testing.T) {
	backend := &fakeBackend{result: &Coordinates{Lat: 1, Lon: 2}}
	g := NewGeocoder(backend, quietLogger())

	for _, raw := range []string{"", "   ", "（未定）", "エリア"} {
		c, err := g.Lookup(context.Background(), raw)
		require.NoError(t, err)
		assert.Nil(t, c)
	}
	assert.Zero(t, backend.calls())
}

func TestGeocoder_NormalizesBeforeLookup(t *testing.T) {
	backend := &fakeBackend{result: &Coordinates{Lat: 35.23, Lon: 139.02}}
	g := NewGeocoder(backend, quietLogger())

	c, err := g.Lookup(context.Background(), "箱根（仙石原）エリア")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, []string{"箱根"}, backend.queries)
	assert.InDelta(t, 35.23, c.Lat, 1e-9)
}

func TestGeocoder_CachesByRawInput(t *testing.T) {
	backend := &fakeBackend{result: &Coordinates{Lat: 35, Lon: 139}}
	g := NewGeocoder(backend, quietLogger())

	for i := 0; i < 3; i++ {
		_, err := g.Lookup(context.Background(), "箱根エリア")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.calls())

	// Same normalized key, different raw string: a separate cache entry.
	_, err := g.Lookup(context.Background(), "箱根周辺")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls())
}

// gatedBackend holds every search until release is closed.
type gatedBackend struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *gatedBackend) Search(ctx context.Context, _ string) (*Coordinates, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
		return &Coordinates{Lat: 35.23, Lon: 139.10}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestGeocoder_FirstCallerCancelDoesNotFailOthers(t *testing.T) {
	backend := &gatedBackend{started: make(chan struct{}), release: make(chan struct{})}
	g := NewGeocoder(backend, quietLogger())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := g.Lookup(ctxA, "箱根")
		errA <- err
	}()
	<-backend.started

	type result struct {
		c   *Coordinates
		err error
	}
	resB := make(chan result, 1)
	go func() {
		c, err := g.Lookup(context.Background(), "箱根")
		resB <- result{c, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(backend.release)
	b := <-resB
	require.NoError(t, b.err)
	require.NotNil(t, b.c)
	assert.InDelta(t, 35.23, b.c.Lat, 1e-9)

	// The shared search still filled the cache.
	c, err := g.Lookup(context.Background(), "箱根")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestGeocoder_ReturnedValueIsACopy(t *testing.T) {
	backend := &fakeBackend{result: &Coordinates{Lat: 35, Lon: 139}}
	g := NewGeocoder(backend, quietLogger())

	c, _ := g.Lookup(context.Background(), "熱海")
	c.Lat = 0
	again, _ := g.Lookup(context.Background(), "熱海")
	assert.Equal(t, 35.0, again.Lat)
}

func TestGeocoder_FailuresAreNotCached(t *testing.T) {
	backend := &fakeBackend{err: fmt.Errorf("%w: status 503", ErrUpstream)}
	g := NewGeocoder(backend, quietLogger())

	c, err := g.Lookup(context.Background(), "熱海")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrUpstream)

	backend.err = nil
	backend.result = &Coordinates{Lat: 35.1, Lon: 139.1}
	c, err = g.Lookup(context.Background(), "熱海")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 2, backend.calls())
}

func TestGeocoder_MalformedIsAbsent(t *testing.T) {
	backend := &fakeBackend{err: fmt.Errorf("%w: unexpected EOF", ErrMalformedResponse)}
	g := NewGeocoder(backend, quietLogger())

	c, err := g.Lookup(context.Background(), "熱海")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestGSIBackend_Search(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"geometry":{"coordinates":[139.1069,35.2324],"type":"Point"},"type":"Feature","properties":{"title":"神奈川県足柄下郡箱根町"}}]`))
	}))
	defer srv.Close()

	c, err := NewGSIBackend(srv.URL).Search(context.Background(), "箱根")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "箱根", gotQuery)
	assert.InDelta(t, 35.2324, c.Lat, 1e-9)
	assert.InDelta(t, 139.1069, c.Lon, 1e-9)
}

func TestGSIBackend_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantNil bool
		wantErr error
	}{
		{name: "empty list", status: 200, body: `[]`, wantNil: true},
		{name: "missing coordinates", status: 200, body: `[{"geometry":{}}]`, wantNil: true},
		{name: "short coordinates", status: 200, body: `[{"geometry":{"coordinates":[139.1]}}]`, wantNil: true},
		{name: "malformed", status: 200, body: `{"oops":`, wantNil: true, wantErr: ErrMalformedResponse},
		{name: "server error", status: 500, body: `boom`, wantNil: true, wantErr: ErrUpstream},
		{name: "not found status", status: 404, body: ``, wantNil: true, wantErr: ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewGSIBackend(srv.URL).Search(context.Background(), "x")
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, c)
			}
		})
	}
}

func TestGeocoder_WithGSIBackendEndToEnd(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[{"geometry":{"coordinates":[135.6727,35.0094]}}]`))
	}))
	defer srv.Close()

	g := NewGeocoder(NewGSIBackend(srv.URL), quietLogger())
	for i := 0; i < 2; i++ {
		c, err := g.Lookup(context.Background(), "京都 嵐山（渡月橋）")
		require.NoError(t, err)
		require.NotNil(t, c)
	}
	assert.Equal(t, int32(1), hits.Load())
}
