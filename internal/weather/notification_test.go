package weather

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestShouldNotify(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		last    time.Time
		enabled bool
		want    bool
	}{
		{"never", time.Unix(0, 0), true, true},
		{"23h ago", now.Add(-23 * time.Hour), true, false},
		{"exactly a day", now.Add(-24 * time.Hour), true, true},
		{"25h ago", now.Add(-25 * time.Hour), true, true},
		{"disabled", time.Unix(0, 0), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldNotify(now, tt.last, tt.enabled))
		})
	}
}

func TestNotificationText(t *testing.T) {
	rec := WeatherRecord{ConditionCode: 500, Description: "light rain", MinTemp: 7.2, MaxTemp: 14.4}

	assert.Equal(t, "Forecast: Light Rain - High: 14°C Low: 7°C", NotificationText(rec, true))
	assert.Equal(t, "Forecast: Light Rain - High: 58°F Low: 45°F", NotificationText(rec, false))
}

func TestNotificationText_DescriptionFallback(t *testing.T) {
	rec := WeatherRecord{ConditionCode: 741, MinTemp: 1, MaxTemp: 3}

	assert.Equal(t, "Forecast: Fog - High: 3°C Low: 1°C", NotificationText(rec, true))
}

func TestCelsiusToFahrenheit(t *testing.T) {
	assert.InDelta(t, 32.0, CelsiusToFahrenheit(0), 1e-9)
	assert.InDelta(t, 212.0, CelsiusToFahrenheit(100), 1e-9)
	assert.InDelta(t, -40.0, CelsiusToFahrenheit(-40), 1e-9)
}

func TestNewNotification(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	rec := WeatherRecord{ID: 7, Date: 1710028800000, ConditionCode: 800, Description: "clear sky", MinTemp: 2, MaxTemp: 11}

	n := NewNotification(rec, true, now)

	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, "Forecast Sync", n.Title)
	assert.Equal(t, int64(7), n.RecordID)
	assert.Equal(t, rec.Date, n.Date)
	assert.Equal(t, ConditionClear, n.Condition)
	assert.Equal(t, now, n.CreatedAt)
	assert.NotEqual(t, n.ID, NewNotification(rec, true, now).ID)
}
