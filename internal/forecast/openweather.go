package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"rideaware/internal/types"
)

// OpenWeatherClient fetches hourly forecasts from the OpenWeather One Call
// API. Outbound calls go through a circuit breaker and a client-side rate
// limiter; every request carries a bounded timeout so a slow upstream can
// never stall a collection tick.
type OpenWeatherClient struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	timeout    time.Duration
}

// OpenWeatherConfig holds the settings for creating an OpenWeatherClient.
type OpenWeatherConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
}

// NewOpenWeatherClient creates an OpenWeatherClient with the given
// configuration. Zero values select sensible defaults.
func NewOpenWeatherClient(cfg OpenWeatherConfig) *OpenWeatherClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openweathermap.org/data/3.0/onecall"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 50
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &OpenWeatherClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    cb,
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
	}
}

// hourlyPoint mirrors the One Call hourly payload. Rain arrives either as a
// bare number or as {"1h": n} depending on the upstream data source.
type hourlyPoint struct {
	Dt         int64           `json:"dt"`
	Temp       *float64        `json:"temp"`
	Humidity   *float64        `json:"humidity"`
	WindSpeed  *float64        `json:"wind_speed"`
	WindDeg    *float64        `json:"wind_deg"`
	Visibility *float64        `json:"visibility"`
	UVI        *float64        `json:"uvi"`
	Rain       json.RawMessage `json:"rain"`
}

// oneCallResponse is the subset of the One Call response we consume.
type oneCallResponse struct {
	Hourly []hourlyPoint `json:"hourly"`
}

// At implements Client. It fetches the hourly series and returns the sample
// whose timestamp is closest to the requested instant.
func (c *OpenWeatherClient) At(ctx context.Context, lat, lon float64, at time.Time) (types.WeatherSample, error) {
	hourly, err := c.fetchHourly(ctx, lat, lon)
	if err != nil {
		return types.WeatherSample{}, err
	}
	if len(hourly) == 0 {
		return types.WeatherSample{}, types.NewAppError(
			types.ErrCodeUpstreamForecast, "no hourly data available", nil)
	}

	target := at.Unix()
	closest := hourly[0]
	bestDiff := int64(math.MaxInt64)
	for _, h := range hourly {
		diff := h.Dt - target
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			closest = h
		}
	}

	return toSample(closest), nil
}

// NextHours implements Client. It returns up to hours upcoming samples in
// chronological order.
func (c *OpenWeatherClient) NextHours(ctx context.Context, lat, lon float64, hours int) ([]types.WeatherSample, error) {
	hourly, err := c.fetchHourly(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if hours > 0 && len(hourly) > hours {
		hourly = hourly[:hours]
	}

	out := make([]types.WeatherSample, 0, len(hourly))
	for _, h := range hourly {
		out = append(out, toSample(h))
	}
	return out, nil
}

// fetchHourly performs the rate-limited, breaker-guarded One Call request.
func (c *OpenWeatherClient) fetchHourly(ctx context.Context, lat, lon float64) ([]hourlyPoint, error) {
	if c.apiKey == "" {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamForecast, "openweather api key is not configured", nil)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "rate limit wait interrupted", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	params.Set("exclude", "current,minutely,daily,alerts")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "building forecast request", err)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			r.Body.Close()
			return nil, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, types.NewAppError(
				types.ErrCodeUpstreamRateLimited, "circuit breaker open; forecast upstream unavailable", err)
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "forecast request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamForecast,
			fmt.Sprintf("forecast upstream returned %d", resp.StatusCode),
			nil,
		)
	}

	var payload oneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "decoding forecast response", err)
	}

	return payload.Hourly, nil
}

// toSample converts an hourly payload point into the domain sample.
func toSample(h hourlyPoint) types.WeatherSample {
	return types.WeatherSample{
		Timestamp:   time.Unix(h.Dt, 0).UTC(),
		WindSpeed:   h.WindSpeed,
		WindDirDeg:  h.WindDeg,
		Rain:        parseRain(h.Rain),
		Humidity:    h.Humidity,
		Temperature: h.Temp,
		Visibility:  h.Visibility,
		UVIndex:     h.UVI,
	}
}

// parseRain accepts both the object form {"1h": n} and a bare number.
func parseRain(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var obj struct {
		OneHour *float64 `json:"1h"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.OneHour != nil {
		return obj.OneHour
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	return nil
}
