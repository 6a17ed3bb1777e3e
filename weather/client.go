// Package weather wraps the OpenWeatherMap APIs used by the advisory
// pipeline: current conditions, the 5-day/3-hour forecast, air
// pollution, reverse geocoding and map tile URL templates. Responses
// are cached by endpoint and coordinates; cache failures never fail a
// lookup.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/config"
)

// mapLayerCodes maps friendly layer names to OpenWeatherMap tile layer
// codes.
var mapLayerCodes = map[string]string{
	"precipitation": "precipitation_new",
	"clouds":        "clouds_new",
	"pressure":      "pressure_new",
	"temperature":   "temp_new",
	"wind":          "wind_new",
}

// Client calls the OpenWeatherMap data, geocoding and tile APIs.
type Client struct {
	baseURL    string
	geoBaseURL string
	mapBaseURL string
	apiKey     string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache attaches a response cache. ttl <= 0 keeps the default of
// 30 minutes.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithAPIKey overrides the key read from OPENWEATHERMAP_API_KEY.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithLogger sets the logger for cache and request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a weather client from config. The API key comes
// from the OPENWEATHERMAP_API_KEY environment variable unless
// WithAPIKey overrides it.
func NewClient(cfg config.WeatherConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		geoBaseURL: strings.TrimSuffix(cfg.GeoBaseURL, "/"),
		mapBaseURL: strings.TrimSuffix(cfg.MapBaseURL, "/"),
		apiKey:     os.Getenv(config.EnvWeatherAPIKey),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cacheTTL:   30 * time.Minute,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current fetches the current weather at the given coordinates.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Current, error) {
	var out Current
	params := c.coordParams(lat, lon)
	params.Set("units", "metric")
	if err := c.getJSON(ctx, "current", c.baseURL+"/weather", params, lat, lon, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FiveDayForecast fetches the 5-day forecast at 3-hour intervals.
func (c *Client) FiveDayForecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	var out Forecast
	params := c.coordParams(lat, lon)
	params.Set("units", "metric")
	if err := c.getJSON(ctx, "forecast", c.baseURL+"/forecast", params, lat, lon, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AirPollution fetches pollutant concentrations and the air quality
// index at the given coordinates.
func (c *Client) AirPollution(ctx context.Context, lat, lon float64) (*AirPollution, error) {
	var out AirPollution
	if err := c.getJSON(ctx, "air_pollution", c.baseURL+"/air_pollution", c.coordParams(lat, lon), lat, lon, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReverseGeocode resolves up to five place names for the given
// coordinates.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) ([]Place, error) {
	params := c.coordParams(lat, lon)
	params.Set("limit", "5")

	var out []Place
	if err := c.getJSON(ctx, "reverse_geocode", c.geoBaseURL+"/reverse", params, lat, lon, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MapURLs returns tile URL templates for the supported weather map
// layers. No API call is made; the key is embedded in each URL.
func (c *Client) MapURLs() *MapLayers {
	layer := func(name string) MapLayer {
		code := mapLayerCodes[name]
		return MapLayer{
			Layer: code,
			URL:   fmt.Sprintf("%s/%s/{z}/{x}/{y}.png?appid=%s", c.mapBaseURL, code, c.apiKey),
		}
	}
	return &MapLayers{
		Precipitation: layer("precipitation"),
		Clouds:        layer("clouds"),
		Pressure:      layer("pressure"),
		Temperature:   layer("temperature"),
		Wind:          layer("wind"),
	}
}

func (c *Client) coordParams(lat, lon float64) url.Values {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%g", lat))
	params.Set("lon", fmt.Sprintf("%g", lon))
	params.Set("appid", c.apiKey)
	return params
}

// getJSON fetches endpoint with a cache in front. Cache errors are
// logged and ignored so weather stays available when Redis is not.
func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, params url.Values, lat, lon float64, out any) error {
	cacheKey := fmt.Sprintf("weather:%s:%g:%g", endpoint, lat, lon)

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			if err := json.Unmarshal(cached, out); err == nil {
				return nil
			}
			c.logger.Warn("discarding undecodable cached weather response",
				slog.String("key", cacheKey))
		case !errors.Is(err, ErrCacheMiss):
			c.logger.Warn("weather cache read failed",
				slog.String("key", cacheKey),
				slog.String("error", err.Error()))
		}
	}

	body, err := c.fetch(ctx, rawURL, params)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body, c.cacheTTL); err != nil {
			c.logger.Warn("weather cache write failed",
				slog.String("key", cacheKey),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	if c.apiKey == "" {
		return nil, apperr.Unavailable("weather service is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "weather service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindUnavailable,
			fmt.Sprintf("weather service returned status %d", resp.StatusCode))
	}
	return body, nil
}
