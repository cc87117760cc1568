package location_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"geomigrate/internal/location"
	"geomigrate/internal/services"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestLookupDecodesCoordinates(t *testing.T) {
	var gotPath, gotAuth string
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		gotAuth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"latitude": 48.85, "longitude": 2.29}`), nil
	})

	provider := location.NewHTTPProvider("https://assets.example.net/", "secret", client)
	coords, err := provider.Lookup(context.Background(), "asset-1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if coords.Latitude != 48.85 || coords.Longitude != 2.29 {
		t.Fatalf("unexpected coordinates: %+v", coords)
	}
	if gotPath != "/api/v1/assets/asset-1/location" {
		t.Fatalf("unexpected request path: %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
}

func TestLookupMapsNotFound(t *testing.T) {
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"error": "gone"}`), nil
	})

	provider := location.NewHTTPProvider("https://assets.example.net", "", client)
	_, err := provider.Lookup(context.Background(), "stale")
	if !services.IsNotFound(err) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestLookupMapsTransportErrorsTransient(t *testing.T) {
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	provider := location.NewHTTPProvider("https://assets.example.net", "", client)
	_, err := provider.Lookup(context.Background(), "asset-1")
	if !services.IsTransient(err) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestLookupMapsServerErrorsTransient(t *testing.T) {
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, "upstream down"), nil
	})

	provider := location.NewHTTPProvider("https://assets.example.net", "", client)
	_, err := provider.Lookup(context.Background(), "asset-1")
	if !services.IsTransient(err) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestLookupMapsAuthFailureToConfiguration(t *testing.T) {
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, ""), nil
	})

	provider := location.NewHTTPProvider("https://assets.example.net", "bad", client)
	_, err := provider.Lookup(context.Background(), "asset-1")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHasLocation(t *testing.T) {
	cases := []struct {
		name   string
		coords location.Coordinates
		want   bool
	}{
		{"both zero", location.Coordinates{}, false},
		{"latitude only", location.Coordinates{Latitude: 0.1}, true},
		{"longitude only", location.Coordinates{Longitude: -0.1}, true},
		{"both set", location.Coordinates{Latitude: 1, Longitude: 2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.coords.HasLocation(); got != tc.want {
				t.Fatalf("HasLocation() = %v, want %v", got, tc.want)
			}
		})
	}
}
