package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name   string
		epoch  int64
		offset time.Duration
		want   int64
	}{
		{"utc afternoon", 1700000000, 0, 1699920000000},
		{"utc next day", 1700086400, 0, 1700006400000},
		{"exact midnight", 1699920000, 0, 1699920000000},
		{"one second before midnight", 1699919999, 0, 1699833600000},
		{"positive offset crosses midnight", 1700002800, 9 * time.Hour, 1700006400000},
		{"negative offset stays behind", 1700006400, -5 * time.Hour, 1699920000000},
		{"before epoch", -1, 0, -DayMillis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDate(tt.epoch, tt.offset)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, got%DayMillis)
		})
	}
}

func TestNormalizeTimeIgnoresLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	instant := time.Unix(1700000000, 0)

	assert.Equal(t, NormalizeTime(instant.UTC(), 0), NormalizeTime(instant.In(seoul), 0))
}

func TestDateTime(t *testing.T) {
	d := DateTime(1699920000000)

	assert.Equal(t, time.UTC, d.Location())
	assert.Equal(t, "2023-11-14", d.Format("2006-01-02"))
	assert.Equal(t, int64(1699920000000), NormalizeTime(d, 0))
}
