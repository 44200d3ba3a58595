package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// WeatherRecord is one day of forecast. Records are replaced wholesale on
// sync and never mutated after they leave the parser.
type WeatherRecord struct {
	// ID is assigned by the store on first insert and kept when the same
	// date is replaced.
	ID int64 `json:"id"`
	// Date is the normalized day key in UTC milliseconds. Unique.
	Date          int64   `json:"date"`
	ConditionCode int     `json:"conditionCode"`
	Description   string  `json:"description"`
	MinTemp       float64 `json:"minTempC"`
	MaxTemp       float64 `json:"maxTempC"`
	Humidity      float64 `json:"humidityPercent"`
	Pressure      float64 `json:"pressureHpa"`
	WindSpeed     float64 `json:"windSpeed"`
	WindDirection float64 `json:"windDirectionDeg"`
}

// Condition returns the high-level condition for the record's code.
func (r WeatherRecord) Condition() Condition {
	return ConditionFor(r.ConditionCode, r.Description)
}

// Day returns the record's date as a UTC time.
func (r WeatherRecord) Day() time.Time {
	return DateTime(r.Date)
}

// SyncStatus is the terminal state of one sync attempt.
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncNoData  SyncStatus = "no_data"
	SyncFailed  SyncStatus = "failed"
)

// Failure reasons reported in SyncOutcome.Reason.
const (
	ReasonNetwork   = "network"
	ReasonParse     = "parse"
	ReasonStore     = "store"
	ReasonThrottled = "throttled"
)

// SyncOutcome reports what a sync attempt did.
type SyncOutcome struct {
	Status SyncStatus `json:"status"`
	Count  int        `json:"count,omitempty"`
	Reason string     `json:"reason,omitempty"`
	At     time.Time  `json:"at"`
}

// Succeeded reports whether the attempt stored records.
func (o SyncOutcome) Succeeded() bool {
	return o.Status == SyncSuccess
}

// SyncState is the persisted bookkeeping read by status endpoints.
type SyncState struct {
	LastSync         time.Time    `json:"lastSync"`
	LastNotification time.Time    `json:"lastNotification"`
	LastOutcome      *SyncOutcome `json:"lastOutcome,omitempty"`
	StoredDays       int          `json:"storedDays"`
}
