package weather

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NotificationInterval is the minimum gap between two new-weather notifications.
const NotificationInterval = 24 * time.Hour

const notificationTitle = "Forecast Sync"

// Notification is what notifier sinks receive.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	RecordID  int64     `json:"recordId"`
	Date      int64     `json:"date"`
	Condition Condition `json:"condition"`
	CreatedAt time.Time `json:"createdAt"`
}

// ShouldNotify reports whether a notification may fire: notifications must
// be enabled and at least a day must have passed since the last one.
func ShouldNotify(now, lastNotification time.Time, enabled bool) bool {
	if !enabled {
		return false
	}
	return now.Sub(lastNotification) >= NotificationInterval
}

// NotificationText renders the summary line for a day, e.g.
// "Forecast: Light Rain - High: 14°C Low: 7°C".
func NotificationText(rec WeatherRecord, metric bool) string {
	desc := rec.Description
	if desc == "" {
		desc = DescriptionFor(rec.ConditionCode)
	}
	desc = cases.Title(language.English).String(desc)

	return fmt.Sprintf("Forecast: %s - High: %s Low: %s",
		desc,
		FormatTemperature(rec.MaxTemp, metric),
		FormatTemperature(rec.MinTemp, metric),
	)
}

// FormatTemperature formats a Celsius value for display, converting to
// Fahrenheit when metric is false.
func FormatTemperature(celsius float64, metric bool) string {
	if metric {
		return fmt.Sprintf("%.0f°C", celsius)
	}
	return fmt.Sprintf("%.0f°F", CelsiusToFahrenheit(celsius))
}

// CelsiusToFahrenheit converts a temperature.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// NewNotification builds the notification for a record.
func NewNotification(rec WeatherRecord, metric bool, now time.Time) Notification {
	return Notification{
		ID:        uuid.New(),
		Title:     notificationTitle,
		Text:      NotificationText(rec, metric),
		RecordID:  rec.ID,
		Date:      rec.Date,
		Condition: rec.Condition(),
		CreatedAt: now,
	}
}
