package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/borocut/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"golang.org/x/time/rate"
)

const (
	// NominatimBaseURL is the public Nominatim search endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org/search"
	// DefaultUserAgent identifies the application as the Nominatim usage policy requires.
	DefaultUserAgent = "borocut/1.0 (https://github.com/UnknownOlympus/borocut)"
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Keeps requests within the usage policy
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// nominatimResponse represents one jsonv2 search result.
type nominatimResponse struct {
	Lat         string   `json:"lat"`          // Latitude as string
	Lon         string   `json:"lon"`          // Longitude as string
	DisplayName string   `json:"display_name"` // Full name of the place
	OSMType     string   `json:"osm_type"`     // node, way or relation
	OSMID       int64    `json:"osm_id"`       // Element id within its type
	BoundingBox []string `json:"boundingbox"`  // south, north, west, east
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewNominatimProvider creates a new Nominatim geocoding provider.
// Uses the public Nominatim API endpoint by default.
func NewNominatimProvider(log *slog.Logger) *NominatimProvider {
	const timeout = 10
	return &NominatimProvider{
		client:  newHTTPClient(timeout * time.Second),
		baseURL: NominatimBaseURL,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		// User-Agent MUST include valid contact info per Nominatim usage policy:
		// https://operations.osmfoundation.org/policies/nominatim/
		userAgent: DefaultUserAgent,
	}
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client
// and rate limiter. Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:    client,
		baseURL:   NominatimBaseURL,
		log:       log,
		limiter:   limiter,
		userAgent: DefaultUserAgent,
	}
}

// Resolve looks a place up using the Nominatim API.
// It respects Nominatim's usage policy by including a User-Agent header and
// waiting on the rate limiter before each request.
//
// Uses a progressive fallback strategy when the full query has no match:
// 1. Try the full query (e.g., "Manhattan, New York, USA")
// 2. Drop the last component (e.g., "Manhattan, New York")
// 3. Drop two components
//
// A bare first component is never tried on its own: without its region
// "Manhattan" resolves to Manhattan, Kansas as readily as to New York.
func (np *NominatimProvider) Resolve(ctx context.Context, query string) (*models.Place, error) {
	np.log.DebugContext(ctx, "Resolving place using Nominatim", "query", query)

	variations := np.generateQueryFallbacks(query)

	for idx, variation := range variations {
		place, err := np.searchSingle(ctx, variation)
		if err == nil {
			if idx == 0 {
				np.log.DebugContext(ctx, "Resolved with full query", "query", variation)
			} else {
				np.log.WarnContext(ctx, "Resolved using fallback query",
					"original", query,
					"fallback", variation,
					"fallback_level", idx)
			}
			place.Query = query
			return place, nil
		}

		// If it's not an empty response error, return immediately (API error, invalid coords, etc.)
		if !errors.Is(err, ErrNominatimEmptyResponse) {
			return nil, err
		}

		np.log.DebugContext(ctx, "Query variation returned no results, trying fallback",
			"variation", variation,
			"fallback_level", idx)
	}

	np.log.WarnContext(ctx, "All query fallbacks exhausted", "query", query, "variations_tried", len(variations))
	return nil, ErrNominatimEmptyResponse
}

// generateQueryFallbacks creates a list of progressively simpler query variations.
func (np *NominatimProvider) generateQueryFallbacks(query string) []string {
	if query == "" {
		return []string{""}
	}

	// Use a map to track unique variations and preserve order
	seen := make(map[string]bool)
	variations := []string{}

	addVariation := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variations = append(variations, v)
		}
	}

	addVariation(query)

	parts := strings.Split(query, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	const minComponents = 2
	for drop := 1; drop <= 2 && len(parts)-drop >= minComponents; drop++ {
		addVariation(strings.Join(parts[:len(parts)-drop], ", "))
	}

	return variations
}

// searchSingle performs a single search request without fallback logic.
func (np *NominatimProvider) searchSingle(ctx context.Context, query string) (*models.Place, error) {
	if np.limiter != nil {
		if err := np.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := reqURL.Query()
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "5") // A few candidates so a boundary relation can win over a node
	q.Set("accept-language", "en")
	reqURL.RawQuery = q.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	best := results[0]
	for _, r := range results {
		if r.OSMType == string(osm.TypeRelation) {
			best = r
			break
		}
	}

	np.log.DebugContext(ctx, "Nominatim found result",
		"name", best.DisplayName,
		"osm_type", best.OSMType,
		"osm_id", best.OSMID,
	)

	return best.toPlace()
}

func (r nominatimResponse) toPlace() (*models.Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, r.Lat)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, r.Lon)
	}

	place := &models.Place{
		DisplayName: r.DisplayName,
		OSMType:     osm.Type(r.OSMType),
		OSMID:       r.OSMID,
		Center:      models.Coordinates{Longitude: lon, Latitude: lat},
		Bound:       orb.Bound{Min: orb.Point{lon, lat}, Max: orb.Point{lon, lat}},
	}

	const bboxLen = 4
	if len(r.BoundingBox) == bboxLen {
		var v [bboxLen]float64
		for i, s := range r.BoundingBox {
			if v[i], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("%w: invalid bounding box: %v", ErrNominatimInvalidCoords, r.BoundingBox)
			}
		}
		place.Bound = orb.Bound{Min: orb.Point{v[2], v[0]}, Max: orb.Point{v[3], v[1]}}
	}
	return place, nil
}
