package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/forecast-sync/internal/weather"
)

// DefaultOpenWeatherURL is the daily forecast endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/forecast/daily"

// OpenWeatherConfig configures OpenWeatherProvider.
type OpenWeatherConfig struct {
	APIKey  string
	BaseURL string
	// Days is the number of forecast days requested.
	Days int
	// UTCOffset is applied when normalizing forecast dates.
	UTCOffset  time.Duration
	MaxRetries int
}

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap's
// daily forecast API.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	days    int
	offset  time.Duration
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, cfg OpenWeatherConfig) *OpenWeatherProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	days := cfg.Days
	if days <= 0 {
		days = 14
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		days:    days,
		offset:  cfg.UTCOffset,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// BuildURL returns the request URL for a location query. Query parameters
// are encoded in sorted order, so the result is stable.
func (p *OpenWeatherProvider) BuildURL(location string) string {
	values := url.Values{}
	values.Set("q", location)
	values.Set("mode", "json")
	values.Set("units", "metric")
	values.Set("cnt", strconv.Itoa(p.days))
	if p.apiKey != "" {
		values.Set("appid", p.apiKey)
	}
	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
}

// Fetch retrieves the raw forecast payload. Every failure is a *weather.FetchError.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, location string) ([]byte, error) {
	u := p.BuildURL(location)

	if location == "" {
		return nil, &weather.FetchError{URL: p.redact(u), Err: errors.New("empty location")}
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	body, err := getBody(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		fe := &weather.FetchError{URL: p.redact(u), Err: err}
		var se *statusError
		if errors.As(err, &se) {
			fe.StatusCode = se.code
		}
		return nil, fe
	}
	return body, nil
}

// Parse converts a payload into records using the provider's UTC offset.
func (p *OpenWeatherProvider) Parse(payload []byte) ([]weather.WeatherRecord, error) {
	return ParseForecast(payload, p.offset)
}

// redact hides the API key in URLs that end up in logs.
func (p *OpenWeatherProvider) redact(u string) string {
	if p.apiKey == "" {
		return u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := parsed.Query()
	q.Set("appid", "REDACTED")
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
