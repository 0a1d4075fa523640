package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"googlemaps.github.io/maps"
)

func TestGeocoder_Search(t *testing.T) {
	var gotAddress string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddress = r.URL.Query().Get("address")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Paris, France","geometry":{"location":{"lat":48.8566,"lng":2.3522}}}]}`))
	}))
	defer srv.Close()

	client, err := maps.NewClient(maps.WithAPIKey("test-key"), maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	c, err := NewGeocoder(client).Search(context.Background(), "パリ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if c == nil {
		t.Fatal("expected coordinates")
	}
	if gotAddress != "パリ" {
		t.Errorf("address = %q", gotAddress)
	}
	if c.Lat != 48.8566 || c.Lon != 2.3522 {
		t.Errorf("unexpected coordinates %+v", c)
	}
}

func TestGeocoder_SearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`))
	}))
	defer srv.Close()

	client, _ := maps.NewClient(maps.WithAPIKey("test-key"), maps.WithBaseURL(srv.URL))
	if _, err := NewGeocoder(client).Search(context.Background(), "パリ"); err == nil {
		t.Fatal("expected error for denied request")
	}
}
