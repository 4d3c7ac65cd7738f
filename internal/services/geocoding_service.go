package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"wayfare/internal/models/db_models"
)

// GeocodingServiceInterface resolves a free-text address to a coordinate and
// the inverse for map-click stop placement. Failures are recoverable: the
// caller leaves the stop unlocated, which blocks finalize later.
type GeocodingServiceInterface interface {
	Resolve(ctx context.Context, address string) (*db_models.Coordinate, string, error)
	ReverseResolve(ctx context.Context, coord db_models.Coordinate) (string, error)
}

// --------- In-memory cache keyed by query ---------

type geocodeCacheEntry struct {
	Coord     db_models.Coordinate
	PlaceName string
	ExpiresAt time.Time
}

type GeocodeCache interface {
	Get(key string) (geocodeCacheEntry, bool)
	Set(key string, v geocodeCacheEntry, ttl time.Duration)
}

type inMemoryGeocodeCache struct {
	mu    sync.RWMutex
	store map[string]geocodeCacheEntry
}

func NewInMemoryGeocodeCache() GeocodeCache {
	return &inMemoryGeocodeCache{store: make(map[string]geocodeCacheEntry)}
}

func (c *inMemoryGeocodeCache) Get(key string) (geocodeCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.store[key]
	if !ok || time.Now().After(it.ExpiresAt) {
		return geocodeCacheEntry{}, false
	}
	return it, true
}

func (c *inMemoryGeocodeCache) Set(key string, v geocodeCacheEntry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v.ExpiresAt = time.Now().Add(ttl)
	c.store[key] = v
}

// -------------- Mapbox geocoding client ---------------

type MapboxGeocodingClient struct {
	HTTP        *http.Client
	AccessToken string
	Cache       GeocodeCache
	DefaultTTL  time.Duration
}

func NewMapboxGeocodingClient(cache GeocodeCache) *MapboxGeocodingClient {
	token := os.Getenv("MAPBOX_ACCESS_TOKEN")
	if token == "" {
		panic("MAPBOX_ACCESS_TOKEN is empty")
	}
	return &MapboxGeocodingClient{
		HTTP:        &http.Client{Timeout: 15 * time.Second},
		AccessToken: token,
		Cache:       cache,
		DefaultTTL:  7 * 24 * time.Hour,
	}
}

type mapboxGeocodePayload struct {
	Features []struct {
		Center    []float64 `json:"center"`
		PlaceName string    `json:"place_name"`
	} `json:"features"`
}

func (c *MapboxGeocodingClient) query(ctx context.Context, path string) (*mapboxGeocodePayload, error) {
	u := url.URL{
		Scheme: "https",
		Host:   "api.mapbox.com",
		Path:   path,
	}
	q := url.Values{}
	q.Set("limit", "1")
	q.Set("access_token", c.AccessToken)
	u.RawQuery = q.Encode()

	req, _ := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox geocode http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("mapbox geocode bad status: %s", resp.Status)
	}

	var payload mapboxGeocodePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("mapbox decode: %w", err)
	}
	return &payload, nil
}

func (c *MapboxGeocodingClient) Resolve(ctx context.Context, address string) (*db_models.Coordinate, string, error) {
	key := "fwd:" + address
	if it, ok := c.Cache.Get(key); ok {
		coord := it.Coord
		return &coord, it.PlaceName, nil
	}

	payload, err := c.query(ctx, fmt.Sprintf("/geocoding/v5/mapbox.places/%s.json", url.PathEscape(address)))
	if err != nil {
		return nil, "", err
	}
	if len(payload.Features) == 0 || len(payload.Features[0].Center) < 2 {
		return nil, "", fmt.Errorf("mapbox geocode: no match for %q", address)
	}

	coord := db_models.Coordinate{
		Lng: payload.Features[0].Center[0],
		Lat: payload.Features[0].Center[1],
	}
	placeName := payload.Features[0].PlaceName
	c.Cache.Set(key, geocodeCacheEntry{Coord: coord, PlaceName: placeName}, c.DefaultTTL)

	return &coord, placeName, nil
}

func (c *MapboxGeocodingClient) ReverseResolve(ctx context.Context, coord db_models.Coordinate) (string, error) {
	key := fmt.Sprintf("rev:%f,%f", coord.Lng, coord.Lat)
	if it, ok := c.Cache.Get(key); ok {
		return it.PlaceName, nil
	}

	payload, err := c.query(ctx, fmt.Sprintf("/geocoding/v5/mapbox.places/%f,%f.json", coord.Lng, coord.Lat))
	if err != nil {
		return "", err
	}
	if len(payload.Features) == 0 {
		return "", fmt.Errorf("mapbox geocode: no place at %f,%f", coord.Lng, coord.Lat)
	}

	placeName := payload.Features[0].PlaceName
	c.Cache.Set(key, geocodeCacheEntry{Coord: coord, PlaceName: placeName}, c.DefaultTTL)

	return placeName, nil
}
