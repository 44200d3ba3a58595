package store

import (
	"context"
	"sort"
	"sync"

	"github.com/i474232898/forecast-sync/internal/weather"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = weather.ErrNotFound
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: normalized date
	data   map[int64]weather.WeatherRecord
	nextID int64

	broker *broker
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[int64]weather.WeatherRecord),
		broker: newBroker(),
	}
}

// BulkUpsert inserts records, replacing any existing record with the same date.
func (s *MemoryStore) BulkUpsert(_ context.Context, records []weather.WeatherRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := s.upsertLocked(records)
	return s.broker.publish(touched, s.snapshotLocked)
}

// DeleteBefore removes every record with date < cutoff.
func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := s.deleteLocked(cutoff)
	return int64(len(touched)), s.broker.publish(touched, s.snapshotLocked)
}

// ReplaceFrom drops records older than the first new date and upserts the batch.
func (s *MemoryStore) ReplaceFrom(_ context.Context, records []weather.WeatherRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := s.deleteLocked(records[0].Date)
	touched = append(touched, s.upsertLocked(records)...)
	return s.broker.publish(touched, s.snapshotLocked)
}

func (s *MemoryStore) upsertLocked(records []weather.WeatherRecord) []int64 {
	touched := make([]int64, 0, len(records))
	for _, r := range records {
		if existing, ok := s.data[r.Date]; ok {
			r.ID = existing.ID
		} else {
			s.nextID++
			r.ID = s.nextID
		}
		s.data[r.Date] = r
		touched = append(touched, r.Date)
	}
	return touched
}

func (s *MemoryStore) deleteLocked(cutoff int64) []int64 {
	var touched []int64
	for date := range s.data {
		if date < cutoff {
			delete(s.data, date)
			touched = append(touched, date)
		}
	}
	return touched
}

func (s *MemoryStore) snapshotLocked(from int64) ([]weather.WeatherRecord, error) {
	out := make([]weather.WeatherRecord, 0, len(s.data))
	for date, r := range s.data {
		if date >= from {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// GetByDate returns the record for a normalized date.
func (s *MemoryStore) GetByDate(_ context.Context, date int64) (weather.WeatherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[date]
	if !ok {
		return weather.WeatherRecord{}, ErrNotFound
	}
	return r, nil
}

// GetByID returns the record with the given id.
func (s *MemoryStore) GetByID(_ context.Context, id int64) (weather.WeatherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.data {
		if r.ID == id {
			return r, nil
		}
	}
	return weather.WeatherRecord{}, ErrNotFound
}

// GetFrom returns all records on or after date, ascending.
func (s *MemoryStore) GetFrom(_ context.Context, date int64) ([]weather.WeatherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(date)
}

// Subscribe watches GetFrom(from).
func (s *MemoryStore) Subscribe(from int64) (weather.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, _ := s.snapshotLocked(from)
	return s.broker.add(from, snap), nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// CountFrom returns the number of records on or after date.
func (s *MemoryStore) CountFrom(_ context.Context, date int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for d := range s.data {
		if d >= date {
			n++
		}
	}
	return n, nil
}

// Close ends all subscriptions.
func (s *MemoryStore) Close() error {
	s.broker.closeAll()
	return nil
}
