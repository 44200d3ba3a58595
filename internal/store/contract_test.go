package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/forecast-sync/internal/weather"
)

var dayD = weather.NormalizeDate(1700000000, 0)

func day(offset int) int64 {
	return dayD + int64(offset)*weather.DayMillis
}

func rec(offset int, maxTemp float64) weather.WeatherRecord {
	return weather.WeatherRecord{
		Date:          day(offset),
		ConditionCode: 800,
		Description:   "clear sky",
		MinTemp:       maxTemp - 8,
		MaxTemp:       maxTemp,
		Humidity:      60,
		Pressure:      1015,
		WindSpeed:     3.5,
		WindDirection: 180,
	}
}

func dates(records []weather.WeatherRecord) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.Date)
	}
	return out
}

func receive(t *testing.T, sub weather.Subscription) []weather.WeatherRecord {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

// runStoreContract exercises behaviour every weather.Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) weather.Store) {
	ctx := context.Background()

	t.Run("upsert replaces on date conflict and keeps id", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(0, 10), rec(1, 11)}))
		first, err := s.GetByDate(ctx, day(0))
		require.NoError(t, err)
		assert.NotZero(t, first.ID)

		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(0, 20)}))
		second, err := s.GetByDate(ctx, day(0))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 20.0, second.MaxTemp)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("delete before is strict", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(-2, 1), rec(-1, 2), rec(0, 3), rec(1, 4)}))

		deleted, err := s.DeleteBefore(ctx, day(0))
		require.NoError(t, err)
		assert.EqualValues(t, 2, deleted)

		all, err := s.GetFrom(ctx, day(-10))
		require.NoError(t, err)
		assert.Equal(t, []int64{day(0), day(1)}, dates(all))
	})

	t.Run("replace from drops older days and overwrites same day", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(-2, 1), rec(-1, 2), rec(0, 3), rec(1, 4)}))
		before, err := s.GetByDate(ctx, day(0))
		require.NoError(t, err)

		require.NoError(t, s.ReplaceFrom(ctx, []weather.WeatherRecord{rec(0, 30), rec(1, 31), rec(2, 32)}))

		all, err := s.GetFrom(ctx, day(-10))
		require.NoError(t, err)
		assert.Equal(t, []int64{day(0), day(1), day(2)}, dates(all))
		assert.Equal(t, before.ID, all[0].ID)
		assert.Equal(t, 30.0, all[0].MaxTemp)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("replace is idempotent", func(t *testing.T) {
		s := newStore(t)
		batch := []weather.WeatherRecord{rec(0, 10), rec(1, 11)}

		require.NoError(t, s.ReplaceFrom(ctx, batch))
		first, err := s.GetFrom(ctx, day(0))
		require.NoError(t, err)

		require.NoError(t, s.ReplaceFrom(ctx, batch))
		second, err := s.GetFrom(ctx, day(0))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("lookups", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(0, 10), rec(1, 11), rec(2, 12)}))

		_, err := s.GetByDate(ctx, day(5))
		assert.ErrorIs(t, err, ErrNotFound)

		r, err := s.GetByDate(ctx, day(1))
		require.NoError(t, err)
		byID, err := s.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r, byID)

		_, err = s.GetByID(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)

		n, err := s.CountFrom(ctx, day(1))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		from, err := s.GetFrom(ctx, day(1))
		require.NoError(t, err)
		assert.Equal(t, []int64{day(1), day(2)}, dates(from))
	})

	t.Run("subscription receives initial and committed snapshots", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(-1, 1), rec(0, 2)}))

		sub, err := s.Subscribe(day(0))
		require.NoError(t, err)
		defer sub.Cancel()

		assert.Equal(t, []int64{day(0)}, dates(receive(t, sub)))

		require.NoError(t, s.ReplaceFrom(ctx, []weather.WeatherRecord{rec(0, 5), rec(1, 6)}))
		snap := receive(t, sub)
		assert.Equal(t, []int64{day(0), day(1)}, dates(snap))
		assert.Equal(t, 5.0, snap[0].MaxTemp)
	})

	t.Run("subscription ignores writes outside its range", func(t *testing.T) {
		s := newStore(t)
		sub, err := s.Subscribe(day(5))
		require.NoError(t, err)
		defer sub.Cancel()
		assert.Empty(t, receive(t, sub))

		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(0, 1)}))

		select {
		case snap := <-sub.Updates():
			t.Fatalf("unexpected snapshot %v", dates(snap))
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("slow subscriber sees latest snapshot", func(t *testing.T) {
		s := newStore(t)
		sub, err := s.Subscribe(day(0))
		require.NoError(t, err)
		defer sub.Cancel()

		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(0, 1)}))
		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(1, 2)}))

		assert.Equal(t, []int64{day(0), day(1)}, dates(receive(t, sub)))
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		s := newStore(t)
		sub, err := s.Subscribe(day(0))
		require.NoError(t, err)
		receive(t, sub)

		sub.Cancel()
		sub.Cancel()

		_, ok := <-sub.Updates()
		assert.False(t, ok)
	})

	t.Run("concurrent replaces never expose partial state", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{rec(-2, -1), rec(-1, -1), rec(0, -1), rec(1, -1), rec(2, -1)}))

		sub, err := s.Subscribe(day(-10))
		require.NoError(t, err)
		assert.Len(t, receive(t, sub), 5)

		done := make(chan struct{})
		var bad []string
		go func() {
			defer close(done)
			for snap := range sub.Updates() {
				if len(snap) != 3 {
					bad = append(bad, fmt.Sprintf("snapshot has %d days", len(snap)))
					continue
				}
				for _, r := range snap[1:] {
					if r.MaxTemp != snap[0].MaxTemp {
						bad = append(bad, "snapshot mixes batches")
					}
				}
			}
		}()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(v float64) {
				defer wg.Done()
				batch := []weather.WeatherRecord{rec(0, v), rec(1, v), rec(2, v)}
				assert.NoError(t, s.ReplaceFrom(ctx, batch))
			}(float64(i))
		}
		wg.Wait()
		sub.Cancel()
		<-done

		assert.Empty(t, bad)
	})
}
