package openweather

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

	"github.com/couchcryptid/ticket-metrics/internal/domain"
	"github.com/couchcryptid/ticket-metrics/internal/observability"
)

// DefaultBaseURL is the public OpenWeatherMap API host.
const DefaultBaseURL = "https://api.openweathermap.org"

// Client implements weather.Fetcher using the OpenWeatherMap current weather API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch returns current conditions for location in metric units.
func (c *Client) Fetch(ctx context.Context, apiKey, location string) (domain.WeatherSnapshot, error) {
	params := url.Values{
		"q":     {location},
		"appid": {apiKey},
		"units": {"metric"},
	}

	start := time.Now()
	snap, err := c.doRequest(ctx, c.baseURL+"/data/2.5/weather?"+params.Encode())
	c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.WeatherSnapshot{}, err
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	c.logger.Debug("weather fetched", "location", snap.Location, "description", snap.Description)
	return snap, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.WeatherSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherSnapshot{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var owResp response
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("decode response: %w", err)
	}

	if len(owResp.Weather) == 0 {
		return domain.WeatherSnapshot{}, errors.New("openweather response has no weather")
	}
	if owResp.Main == nil || owResp.Main.Temp == nil {
		return domain.WeatherSnapshot{}, errors.New("openweather response has no temperature")
	}

	return domain.WeatherSnapshot{
		Location:           owResp.Name,
		Description:        owResp.Weather[0].Description,
		TemperatureCelsius: *owResp.Main.Temp,
	}, nil
}

// OpenWeatherMap API response types.

type response struct {
	Weather []condition `json:"weather"`
	Main    *mainBlock  `json:"main"`
	Name    string      `json:"name"`
}

type condition struct {
	Description string `json:"description"`
}

type mainBlock struct {
	Temp *float64 `json:"temp"`
}
