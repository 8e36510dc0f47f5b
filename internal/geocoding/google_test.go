package geocoding_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/borocut/internal/geocoding"
	"github.com/UnknownOlympus/borocut/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleProvider_Resolve(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		query := "some invalid place"
		req := &maps.GeocodingRequest{Address: query}

		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Resolve(ctx, query)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		mockClient.AssertExpectations(t)
	})

	t.Run("api return empty response", func(t *testing.T) {
		query := "some invalid place"
		req := &maps.GeocodingRequest{Address: query}

		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		place, err := provider.Resolve(ctx, query)

		require.Nil(t, place)
		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
		mockClient.AssertExpectations(t)
	})

	t.Run("bounds win over viewport", func(t *testing.T) {
		query := "Manhattan, New York, USA"
		req := &maps.GeocodingRequest{Address: query}
		mockResponse := []maps.GeocodingResult{{
			FormattedAddress: "Manhattan, New York, NY, USA",
			Geometry: maps.AddressGeometry{
				Location: maps.LatLng{Lat: 40.7831, Lng: -73.9712},
				Bounds: maps.LatLngBounds{
					NorthEast: maps.LatLng{Lat: 40.882, Lng: -73.907},
					SouthWest: maps.LatLng{Lat: 40.680, Lng: -74.047},
				},
				Viewport: maps.LatLngBounds{
					NorthEast: maps.LatLng{Lat: 41, Lng: -73},
					SouthWest: maps.LatLng{Lat: 40, Lng: -75},
				},
			},
		}}

		mockClient.On("Geocode", ctx, req).Return(mockResponse, nil).Once()

		place, err := provider.Resolve(ctx, query)

		require.NoError(t, err)
		require.NotNil(t, place)
		assert.Equal(t, "Manhattan, New York, NY, USA", place.DisplayName)
		assert.Equal(t, query, place.Query)
		assert.InEpsilon(t, 40.7831, place.Center.Latitude, 0.0001)
		assert.InEpsilon(t, 40.680, place.Bound.Min[1], 1e-9)
		assert.InEpsilon(t, -73.907, place.Bound.Max[0], 1e-9)
		_, ok := place.AreaID()
		assert.False(t, ok, "google results carry no OSM relation")
		mockClient.AssertExpectations(t)
	})

	t.Run("viewport when bounds are missing", func(t *testing.T) {
		query := "125th Street"
		req := &maps.GeocodingRequest{Address: query}
		mockResponse := []maps.GeocodingResult{{
			Geometry: maps.AddressGeometry{
				Location: maps.LatLng{Lat: 40.81, Lng: -73.95},
				Viewport: maps.LatLngBounds{
					NorthEast: maps.LatLng{Lat: 40.82, Lng: -73.93},
					SouthWest: maps.LatLng{Lat: 40.80, Lng: -73.96},
				},
			},
		}}

		mockClient.On("Geocode", ctx, req).Return(mockResponse, nil).Once()

		place, err := provider.Resolve(ctx, query)

		require.NoError(t, err)
		assert.True(t, place.HasBound())
		assert.InEpsilon(t, 40.82, place.Bound.Max[1], 1e-9)
		mockClient.AssertExpectations(t)
	})
}
