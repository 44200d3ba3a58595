package weather

import "sort"

// MergeDay collapses several entries for the same normalized date into one
// record. The first entry supplies condition, description, humidity,
// pressure and wind; temperatures span the whole day.
func MergeDay(entries []WeatherRecord) WeatherRecord {
	if len(entries) == 0 {
		return WeatherRecord{}
	}

	merged := entries[0]
	for _, e := range entries[1:] {
		if e.MinTemp < merged.MinTemp {
			merged.MinTemp = e.MinTemp
		}
		if e.MaxTemp > merged.MaxTemp {
			merged.MaxTemp = e.MaxTemp
		}
	}
	return merged
}

// CollapseByDay groups entries by Date, merges each group with MergeDay and
// returns the result in ascending date order.
func CollapseByDay(entries []WeatherRecord) []WeatherRecord {
	groups := make(map[int64][]WeatherRecord)
	order := make([]int64, 0, len(entries))

	for _, e := range entries {
		if _, ok := groups[e.Date]; !ok {
			order = append(order, e.Date)
		}
		groups[e.Date] = append(groups[e.Date], e)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]WeatherRecord, 0, len(order))
	for _, d := range order {
		out = append(out, MergeDay(groups[d]))
	}
	return out
}
