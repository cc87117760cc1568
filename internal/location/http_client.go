package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"geomigrate/internal/config"
	"geomigrate/internal/services"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// httpProvider implements Provider against the asset provider's JSON API.
type httpProvider struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewHTTPProvider constructs a provider client using the given HTTP backend.
func NewHTTPProvider(baseURL, apiKey string, client HTTPDoer) Provider {
	return &httpProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// NewFromConfig constructs a provider client backed by a default http.Client
// with the configured timeout.
func NewFromConfig(cfg *config.Config) Provider {
	client := &http.Client{Timeout: time.Duration(cfg.Provider.TimeoutSeconds) * time.Second}
	return NewHTTPProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, client)
}

func (p *httpProvider) Lookup(ctx context.Context, localID string) (Coordinates, error) {
	path := "/api/v1/assets/" + url.PathEscape(localID) + "/location"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return Coordinates{}, services.Wrap(services.ErrValidation, "location", "lookup", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Coordinates{}, services.Wrap(services.ErrTransient, "location", "lookup", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Coordinates{}, services.Wrap(services.ErrNotFound, "location", "lookup", "asset "+localID+" no longer exists", nil)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Coordinates{}, services.Wrap(services.ErrConfiguration, "location", "lookup",
			fmt.Sprintf("provider rejected credentials (%d)", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := fmt.Sprintf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		return Coordinates{}, services.Wrap(services.ErrTransient, "location", "lookup", detail, nil)
	}

	var coords Coordinates
	if err := json.NewDecoder(resp.Body).Decode(&coords); err != nil {
		return Coordinates{}, services.Wrap(services.ErrExternalTool, "location", "lookup", "decode response", err)
	}
	return coords, nil
}
