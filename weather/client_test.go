package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/config"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	value, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return value, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = value
	return nil
}

const currentBody = `{
	"weather": [{"id": 804, "main": "Clouds", "description": "overcast clouds", "icon": "04d"}],
	"main": {"temp": 28.4, "feels_like": 31.2, "temp_min": 27.0, "temp_max": 29.1, "pressure": 1006, "humidity": 74},
	"visibility": 10000,
	"wind": {"speed": 3.6, "deg": 240},
	"clouds": {"all": 90},
	"dt": 1718000000,
	"sys": {"country": "IN", "sunrise": 1717980000, "sunset": 1718026800},
	"timezone": 19800,
	"id": 1264527,
	"name": "Chennai"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.WeatherConfig{
		BaseURL:    server.URL,
		GeoBaseURL: server.URL + "/geo",
		MapBaseURL: "https://tile.example.com/map",
	}
	opts = append([]Option{WithAPIKey("test-key")}, opts...)
	return NewClient(cfg, opts...), server
}

func TestCurrentWeather(t *testing.T) {
	var gotPath, gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(currentBody))
	})

	current, err := client.Current(context.Background(), 13.0827, 80.2707)
	require.NoError(t, err)

	assert.Equal(t, "/weather", gotPath)
	assert.Contains(t, gotQuery, "lat=13.0827")
	assert.Contains(t, gotQuery, "units=metric")
	assert.Contains(t, gotQuery, "appid=test-key")

	assert.Equal(t, "Chennai", current.Name)
	assert.Equal(t, 28.4, current.Main.Temp)
	require.Len(t, current.Weather, 1)
	assert.Equal(t, "Clouds", current.Weather[0].Main)
}

func TestCurrentWeatherCached(t *testing.T) {
	var calls int
	cache := newMemCache()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(currentBody))
	}, WithCache(cache, time.Minute))

	ctx := context.Background()
	_, err := client.Current(ctx, 13.0827, 80.2707)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	current, err := client.Current(ctx, 13.0827, 80.2707)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second lookup should be served from cache")
	assert.Equal(t, "Chennai", current.Name)

	// Different coordinates miss the cache.
	_, err = client.Current(ctx, 12.9716, 77.5946)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCacheFailuresAreIgnored(t *testing.T) {
	var calls int
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(currentBody))
	}, WithCache(cache, time.Minute))

	current, err := client.Current(context.Background(), 13.0827, 80.2707)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Chennai", current.Name)
}

func TestReverseGeocode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/reverse", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"name": "Chennai", "lat": 13.0827, "lon": 80.2707, "country": "IN", "state": "Tamil Nadu"}]`))
	})

	places, err := client.ReverseGeocode(context.Background(), 13.0827, 80.2707)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Chennai", places[0].Name)
	assert.Equal(t, "Tamil Nadu", places[0].State)
}

func TestUpstreamErrorSurfacesAsUnavailable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Current(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.From(err).Kind)
}

func TestMissingAPIKey(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without an API key")
	}, WithAPIKey(""))

	_, err := client.Current(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.From(err).Kind)
}

func TestMapURLs(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	layers := client.MapURLs()
	assert.Equal(t, "temp_new", layers.Temperature.Layer)
	assert.Equal(t, "https://tile.example.com/map/temp_new/{z}/{x}/{y}.png?appid=test-key", layers.Temperature.URL)
	assert.Equal(t, "precipitation_new", layers.Precipitation.Layer)
	assert.True(t, strings.HasSuffix(layers.Wind.URL, "/wind_new/{z}/{x}/{y}.png?appid=test-key"))
}
