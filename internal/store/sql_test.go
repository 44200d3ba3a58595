package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/forecast-sync/internal/weather"
)

var sqliteSeq atomic.Int64

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()

	dsn := fmt.Sprintf("file:forecast_%d?mode=memory&cache=shared", sqliteSeq.Add(1))
	s, err := OpenSQLite(dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) weather.Store {
		return newSQLiteStore(t)
	})
}

func TestSQLStore_PersistsAllFields(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	in := weather.WeatherRecord{
		Date:          day(0),
		ConditionCode: 501,
		Description:   "moderate rain",
		MinTemp:       4.25,
		MaxTemp:       11.5,
		Humidity:      87,
		Pressure:      1002.5,
		WindSpeed:     6.1,
		WindDirection: 270,
	}
	require.NoError(t, s.BulkUpsert(ctx, []weather.WeatherRecord{in}))

	out, err := s.GetByDate(ctx, day(0))
	require.NoError(t, err)
	in.ID = out.ID
	assert.Equal(t, in, out)
}

func TestSQLStore_ClosedDatabaseReturnsStoreError(t *testing.T) {
	s := newSQLiteStore(t)
	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = s.ReplaceFrom(context.Background(), []weather.WeatherRecord{rec(0, 1)})
	var se *weather.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "replace", se.Op)
}
