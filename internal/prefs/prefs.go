// Package prefs stores user settings and sync bookkeeping.
package prefs

import (
	"context"
	"fmt"
	"time"

	"github.com/i474232898/forecast-sync/internal/weather"
)

// Units values.
const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
)

const (
	keyLocation         = "location"
	keyNotifications    = "notifications_enabled"
	keyUnits            = "units"
	keyLastSync         = "last_sync_ms"
	keyLastNotification = "last_notification_ms"
)

// Store is a preference backend that also accepts user settings.
type Store interface {
	weather.Preferences
	Apply(ctx context.Context, s Settings) error
	Settings(ctx context.Context) (Snapshot, error)
}

// Defaults apply when a key has never been written.
type Defaults struct {
	Location             string
	NotificationsEnabled bool
	Units                string
}

// Settings is a partial update; nil fields are left untouched.
type Settings struct {
	Location             *string `json:"location,omitempty" validate:"omitempty,min=1,max=128"`
	NotificationsEnabled *bool   `json:"notificationsEnabled,omitempty"`
	Units                *string `json:"units,omitempty" validate:"omitempty,oneof=metric imperial"`
}

// Snapshot is the full set of current user settings.
type Snapshot struct {
	Location             string `json:"location"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	Units                string `json:"units"`
}

func validUnits(u string) error {
	if u != UnitsMetric && u != UnitsImperial {
		return fmt.Errorf("unknown units %q", u)
	}
	return nil
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
