package weather

import (
	"context"
	"time"
)

// Provider abstracts the remote forecast source: it fetches a raw payload for
// a location query and parses payloads into records.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, location string) ([]byte, error)
	Parse(payload []byte) ([]WeatherRecord, error)
}

// Subscription is a live view of GetFrom. The channel first carries the
// current snapshot and then one snapshot per committed write that touched
// the watched range.
type Subscription interface {
	Updates() <-chan []WeatherRecord
	Cancel()
}

// Store is the forecast table. Implementations serialize writes and publish
// to subscribers only after a write commits.
type Store interface {
	BulkUpsert(ctx context.Context, records []WeatherRecord) error
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
	// ReplaceFrom deletes every record older than records[0].Date and then
	// upserts records, as one atomic unit. records must be sorted by Date.
	ReplaceFrom(ctx context.Context, records []WeatherRecord) error
	GetByDate(ctx context.Context, date int64) (WeatherRecord, error)
	GetByID(ctx context.Context, id int64) (WeatherRecord, error)
	GetFrom(ctx context.Context, date int64) ([]WeatherRecord, error)
	Subscribe(from int64) (Subscription, error)
	Count(ctx context.Context) (int, error)
	CountFrom(ctx context.Context, date int64) (int, error)
	Close() error
}

// Preferences holds user settings and sync bookkeeping. Missing timestamps
// read as the Unix epoch.
type Preferences interface {
	Location(ctx context.Context) (string, error)
	NotificationsEnabled(ctx context.Context) (bool, error)
	Metric(ctx context.Context) (bool, error)
	LastSync(ctx context.Context) (time.Time, error)
	SetLastSync(ctx context.Context, t time.Time) error
	LastNotification(ctx context.Context) (time.Time, error)
	SetLastNotification(ctx context.Context, t time.Time) error
}

// Notifier delivers new-weather notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
