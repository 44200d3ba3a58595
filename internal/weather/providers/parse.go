package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/i474232898/forecast-sync/internal/weather"
)

var errMissing = errors.New("missing")

// forecastPayload accepts both the daily endpoint (temp.min/temp.max,
// top-level speed/deg) and the 3-hourly endpoint (main.temp_min, wind.*).
type forecastPayload struct {
	City json.RawMessage  `json:"city"`
	List *[]forecastEntry `json:"list"`
}

type forecastEntry struct {
	Dt      *int64 `json:"dt"`
	Weather []struct {
		ID          *int   `json:"id"`
		Description string `json:"description"`
	} `json:"weather"`

	Temp *struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"temp"`
	Humidity *float64 `json:"humidity"`
	Pressure *float64 `json:"pressure"`
	Speed    *float64 `json:"speed"`
	Deg      *float64 `json:"deg"`

	Main *struct {
		TempMin  *float64 `json:"temp_min"`
		TempMax  *float64 `json:"temp_max"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
}

// ParseForecast converts a forecast payload into records sorted by date.
// Entries falling on the same normalized day are merged. A missing or
// malformed mandatory field anywhere fails the whole parse.
func ParseForecast(payload []byte, offset time.Duration) ([]weather.WeatherRecord, error) {
	var doc forecastPayload
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, &weather.ParseError{Index: -1, Err: err}
	}

	city := bytes.TrimSpace(doc.City)
	if len(city) == 0 || city[0] != '{' {
		return nil, &weather.ParseError{Index: -1, Field: "city", Err: errMissing}
	}
	if doc.List == nil {
		return nil, &weather.ParseError{Index: -1, Field: "list", Err: errMissing}
	}

	entries := make([]weather.WeatherRecord, 0, len(*doc.List))
	for i, e := range *doc.List {
		r, err := e.record(offset)
		if err != nil {
			err.Index = i
			return nil, err
		}
		entries = append(entries, r)
	}

	return weather.CollapseByDay(entries), nil
}

func (e forecastEntry) record(offset time.Duration) (weather.WeatherRecord, *weather.ParseError) {
	if e.Dt == nil {
		return weather.WeatherRecord{}, &weather.ParseError{Field: "dt", Err: errMissing}
	}
	if len(e.Weather) == 0 || e.Weather[0].ID == nil {
		return weather.WeatherRecord{}, &weather.ParseError{Field: "weather.id", Err: errMissing}
	}

	var minT, maxT *float64
	switch {
	case e.Temp != nil:
		minT, maxT = e.Temp.Min, e.Temp.Max
	case e.Main != nil:
		minT, maxT = e.Main.TempMin, e.Main.TempMax
	}
	if minT == nil {
		return weather.WeatherRecord{}, &weather.ParseError{Field: "temp.min", Err: errMissing}
	}
	if maxT == nil {
		return weather.WeatherRecord{}, &weather.ParseError{Field: "temp.max", Err: errMissing}
	}

	code := *e.Weather[0].ID
	desc := e.Weather[0].Description
	if desc == "" {
		desc = weather.DescriptionFor(code)
	}

	r := weather.WeatherRecord{
		Date:          weather.NormalizeDate(*e.Dt, offset),
		ConditionCode: code,
		Description:   desc,
		MinTemp:       *minT,
		MaxTemp:       *maxT,
	}

	humidity, pressure := e.Humidity, e.Pressure
	speed, deg := e.Speed, e.Deg
	if e.Main != nil {
		humidity = firstSet(humidity, e.Main.Humidity)
		pressure = firstSet(pressure, e.Main.Pressure)
	}
	if e.Wind != nil {
		speed = firstSet(speed, e.Wind.Speed)
		deg = firstSet(deg, e.Wind.Deg)
	}
	r.Humidity = valueOr(humidity)
	r.Pressure = valueOr(pressure)
	r.WindSpeed = valueOr(speed)
	r.WindDirection = valueOr(deg)

	return r, nil
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func valueOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
