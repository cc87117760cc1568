package location

import "context"

// Coordinates is a geolocation reading for one asset.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HasLocation reports whether the coordinates carry meaningful location
// data. An exact (0, 0) reading is treated as "no location recorded".
func (c Coordinates) HasLocation() bool {
	return c.Latitude != 0 || c.Longitude != 0
}

// Provider resolves coordinates for a local asset ID.
//
// Lookup fails with a services.ErrNotFound-tagged error when the asset no
// longer exists at the provider, and a services.ErrTransient-tagged error on
// request failures that are safe to retry.
type Provider interface {
	Lookup(ctx context.Context, localID string) (Coordinates, error)
}
