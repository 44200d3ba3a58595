package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/forecast-sync/internal/weather"
)

func TestOpenWeatherProvider_BuildURL(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, OpenWeatherConfig{
		APIKey:  "secret",
		BaseURL: "https://example.test/forecast/daily",
		Days:    7,
	})

	tests := []struct {
		name     string
		location string
		want     string
	}{
		{
			name:     "city and country",
			location: "Seoul,KR",
			want:     "https://example.test/forecast/daily?appid=secret&cnt=7&mode=json&q=Seoul%2CKR&units=metric",
		},
		{
			name:     "spaces and unicode",
			location: "São Paulo,BR",
			want:     "https://example.test/forecast/daily?appid=secret&cnt=7&mode=json&q=S%C3%A3o+Paulo%2CBR&units=metric",
		},
		{
			name:     "postal code",
			location: "94043,USA",
			want:     "https://example.test/forecast/daily?appid=secret&cnt=7&mode=json&q=94043%2CUSA&units=metric",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BuildURL(tt.location))
			assert.Equal(t, p.BuildURL(tt.location), p.BuildURL(tt.location))
		})
	}
}

func TestOpenWeatherProvider_Defaults(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, OpenWeatherConfig{})

	assert.Equal(t, "openweathermap", p.Name())
	assert.Equal(t, DefaultOpenWeatherURL+"?cnt=14&mode=json&q=Seoul&units=metric", p.BuildURL("Seoul"))
}

func TestOpenWeatherProvider_Fetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(twoDayPayload))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{BaseURL: srv.URL, APIKey: "k"})

	body, err := p.Fetch(context.Background(), "Seoul,KR")
	require.NoError(t, err)
	assert.JSONEq(t, twoDayPayload, string(body))
	assert.Equal(t, "Seoul,KR", gotQuery)
}

func TestOpenWeatherProvider_FetchNon2xx(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, errUnexpected},
		{"unauthorized", http.StatusUnauthorized, errUnexpected},
		{"rate limited", http.StatusTooManyRequests, errRateLimited},
		{"server error", http.StatusBadGateway, errServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"cod":"x"}`, tt.status)
			}))
			defer srv.Close()

			p := NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{BaseURL: srv.URL, APIKey: "secret"})

			_, err := p.Fetch(context.Background(), "Seoul,KR")
			var fe *weather.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotContains(t, fe.URL, "secret")
		})
	}
}

func TestOpenWeatherProvider_FetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewOpenWeatherProvider(&http.Client{Timeout: time.Second}, OpenWeatherConfig{BaseURL: url})

	_, err := p.Fetch(context.Background(), "Seoul,KR")
	var fe *weather.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.StatusCode)
}

func TestOpenWeatherProvider_FetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewOpenWeatherProvider(&http.Client{Timeout: 50 * time.Millisecond}, OpenWeatherConfig{BaseURL: srv.URL})

	_, err := p.Fetch(context.Background(), "Seoul,KR")
	var fe *weather.FetchError
	assert.ErrorAs(t, err, &fe)
}

func TestOpenWeatherProvider_FetchRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(twoDayPayload))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{BaseURL: srv.URL, MaxRetries: 1})

	_, err := p.Fetch(context.Background(), "Seoul,KR")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenWeatherProvider_FetchNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{BaseURL: srv.URL})

	_, err := p.Fetch(context.Background(), "Seoul,KR")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestOpenWeatherProvider_FetchEmptyLocation(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, OpenWeatherConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := p.Fetch(context.Background(), "")
	var fe *weather.FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestOpenWeatherProvider_Parse(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, OpenWeatherConfig{})

	records, err := p.Parse([]byte(twoDayPayload))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
