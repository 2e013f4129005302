package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGeocoder(t *testing.T) {
	g := NewGeocoder()
	if g == nil {
		t.Fatal("NewGeocoder() returned nil")
	}
	if g.baseURL != nominatimURL {
		t.Errorf("baseURL = %s, want %s", g.baseURL, nominatimURL)
	}
}

func TestGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s, want /search", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "Otter Lake, MN" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "CroakCounter") {
			t.Error("User-Agent header not set")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"45.0872","lon":"-93.0427","display_name":"Otter Lake, Minnesota"}]`))
	}))
	defer server.Close()

	loc, err := NewGeocoderWithBaseURL(server.URL).Geocode(context.Background(), " Otter Lake, MN ")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if loc.Latitude != 45.0872 || loc.Longitude != -93.0427 {
		t.Errorf("location = %+v", loc)
	}
	if loc.Name != "Otter Lake, Minnesota" {
		t.Errorf("Name = %q", loc.Name)
	}
}

func TestGeocode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no results", http.StatusOK, `[]`},
		{"bad status", http.StatusTooManyRequests, ``},
		{"bad coordinates", http.StatusOK, `[{"lat":"north","lon":"0"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			if _, err := NewGeocoderWithBaseURL(server.URL).Geocode(context.Background(), "Bog"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGeocode_EmptyQuery(t *testing.T) {
	if _, err := NewGeocoder().Geocode(context.Background(), "  "); err == nil {
		t.Error("expected error for empty query")
	}
}
