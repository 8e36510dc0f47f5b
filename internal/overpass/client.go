// Package overpass downloads OpenStreetMap features through the Overpass API
// and turns the highway ways of a place into a single reference line.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/borocut/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the main public Overpass interpreter.
	DefaultBaseURL = "https://overpass-api.de/api/interpreter"
	// DefaultTimeout bounds both the server-side query and the HTTP request.
	DefaultTimeout = 180 * time.Second
)

// ErrNoArea is returned when a place has neither an OSM relation nor a
// bounding box to restrict the query to.
var ErrNoArea = errors.New("place has no area or bounding box")

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FeatureSource returns the OSM features carrying a tag inside a place.
type FeatureSource interface {
	Features(ctx context.Context, place *models.Place, tag string) (*geojson.FeatureCollection, error)
}

// Client queries an Overpass interpreter.
type Client struct {
	client    HTTPClient
	baseURL   string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	log       *slog.Logger
}

type response struct {
	Remark   string    `json:"remark"`
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
}

// NewClient creates a client for the given interpreter URL. An empty URL
// selects the public instance and a zero timeout selects DefaultTimeout.
func NewClient(baseURL, userAgent string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClientWithHTTP(&http.Client{Timeout: timeout}, baseURL, userAgent, timeout, rate.NewLimiter(rate.Every(time.Second), 1), log)
}

// NewClientWithHTTP creates a client with a custom HTTP client and limiter.
func NewClientWithHTTP(
	client HTTPClient,
	baseURL, userAgent string,
	timeout time.Duration,
	limiter *rate.Limiter,
	log *slog.Logger,
) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   timeout,
		limiter:   limiter,
		log:       log,
	}
}

// BuildQuery renders the Overpass QL query selecting ways with the tag
// inside the place. Places backed by a relation are searched by area,
// others by bounding box. A tag is either a key ("highway") or a
// key=value pair ("highway=primary").
func BuildQuery(place *models.Place, tag string, timeout time.Duration) (string, error) {
	filter, err := tagFilter(tag)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];", int(timeout.Seconds()))

	if id, ok := place.AreaID(); ok {
		fmt.Fprintf(&b, "area(%d)->.searchArea;way%s(area.searchArea);", id, filter)
	} else if place.HasBound() {
		bb := place.Bound
		fmt.Fprintf(&b, "way%s(%f,%f,%f,%f);", filter, bb.Min[1], bb.Min[0], bb.Max[1], bb.Max[0])
	} else {
		return "", fmt.Errorf("%w: %q", ErrNoArea, place.Query)
	}

	b.WriteString("out geom;")
	return b.String(), nil
}

func tagFilter(tag string) (string, error) {
	key, value, hasValue := strings.Cut(tag, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("invalid tag filter %q", tag)
	}
	if !hasValue {
		return fmt.Sprintf("[%q]", key), nil
	}
	return fmt.Sprintf("[%q=%q]", key, strings.TrimSpace(value)), nil
}

// Features downloads the ways carrying the tag inside the place. Open ways
// become LineString features; closed ways tagged area=yes become Polygon
// features. Feature properties are the OSM tags plus "@id".
func (c *Client) Features(ctx context.Context, place *models.Place, tag string) (*geojson.FeatureCollection, error) {
	query, err := BuildQuery(place, tag, c.timeout)
	if err != nil {
		return nil, err
	}

	c.log.DebugContext(ctx, "Overpass query", "query", query)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute overpass request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read overpass response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.ErrorContext(ctx, "Overpass API error", "status", resp.StatusCode, "body", truncate(string(body), 512))
		return nil, fmt.Errorf("overpass API returned status %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}
	if len(r.Elements) == 0 && r.Remark != "" {
		return nil, fmt.Errorf("overpass API error: %s", r.Remark)
	}

	fc := geojson.NewFeatureCollection()
	for _, e := range r.Elements {
		if f := e.feature(); f != nil {
			fc.Append(f)
		}
	}

	c.log.InfoContext(ctx, "Fetched OSM features",
		"tag", tag,
		"elements", len(r.Elements),
		"features", len(fc.Features),
		"duration", time.Since(start),
	)
	return fc, nil
}

func (e element) feature() *geojson.Feature {
	if e.Type != string(osm.TypeWay) || len(e.Geometry) < 2 {
		return nil
	}

	ls := make(orb.LineString, 0, len(e.Geometry))
	for _, p := range e.Geometry {
		ls = append(ls, orb.Point{p.Lon, p.Lat})
	}

	tags := make(osm.Tags, 0, len(e.Tags))
	for k, v := range e.Tags {
		tags = append(tags, osm.Tag{Key: k, Value: v})
	}
	tags.SortByKeyValue()

	var g orb.Geometry = ls
	if isArea(tags) && len(ls) >= 4 && ls[0].Equal(ls[len(ls)-1]) {
		g = orb.Polygon{orb.Ring(ls)}
	}

	f := geojson.NewFeature(g)
	for _, t := range tags {
		f.Properties[t.Key] = t.Value
	}
	f.Properties["@id"] = osm.WayID(e.ID).FeatureID().String()
	return f
}

func isArea(tags osm.Tags) bool {
	return tags.Find("area") == "yes"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
