package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/borocut/internal/models"
	"github.com/paulmach/orb"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// NewGoogleProvider returns a GoogleProvider backed by the given client.
// The client carries the API key and any rate limit.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Resolve geocodes the query with the Google Maps Geocoding API. The place
// bounding box comes from the result bounds, or the viewport when Google
// reports no bounds. Google results carry no OpenStreetMap element, so the
// Overpass query falls back to the bounding box.
func (gp *GoogleProvider) Resolve(ctx context.Context, query string) (*models.Place, error) {
	gp.log.DebugContext(ctx, "Resolving place using Google Maps", "query", query)

	req := maps.GeocodingRequest{Address: query}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}
	result := geocodeResponse[0]
	loc := result.Geometry.Location

	bounds := result.Geometry.Bounds
	if bounds == (maps.LatLngBounds{}) {
		bounds = result.Geometry.Viewport
	}

	place := &models.Place{
		Query:       query,
		DisplayName: result.FormattedAddress,
		Center:      models.Coordinates{Longitude: loc.Lng, Latitude: loc.Lat},
		Bound: orb.Bound{
			Min: orb.Point{bounds.SouthWest.Lng, bounds.SouthWest.Lat},
			Max: orb.Point{bounds.NorthEast.Lng, bounds.NorthEast.Lat},
		},
	}
	if !place.HasBound() {
		place.Bound = orb.Bound{Min: loc2point(loc), Max: loc2point(loc)}
	}
	return place, nil
}

func loc2point(l maps.LatLng) orb.Point {
	return orb.Point{l.Lng, l.Lat}
}
