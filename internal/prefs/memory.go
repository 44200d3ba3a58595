package prefs

import (
	"context"
	"sync"
	"time"
)

// MemoryPrefs keeps preferences in process memory.
type MemoryPrefs struct {
	mu       sync.RWMutex
	defaults Defaults
	strings  map[string]string
	bools    map[string]bool
	times    map[string]int64
}

// NewMemoryPrefs creates an empty MemoryPrefs.
func NewMemoryPrefs(d Defaults) *MemoryPrefs {
	return &MemoryPrefs{
		defaults: d,
		strings:  make(map[string]string),
		bools:    make(map[string]bool),
		times:    make(map[string]int64),
	}
}

func (p *MemoryPrefs) Location(_ context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.strings[keyLocation]; ok {
		return v, nil
	}
	return p.defaults.Location, nil
}

func (p *MemoryPrefs) NotificationsEnabled(_ context.Context) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.bools[keyNotifications]; ok {
		return v, nil
	}
	return p.defaults.NotificationsEnabled, nil
}

func (p *MemoryPrefs) Metric(_ context.Context) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	units, ok := p.strings[keyUnits]
	if !ok {
		units = p.defaults.Units
	}
	return units != UnitsImperial, nil
}

func (p *MemoryPrefs) LastSync(_ context.Context) (time.Time, error) {
	return p.time(keyLastSync), nil
}

func (p *MemoryPrefs) SetLastSync(_ context.Context, t time.Time) error {
	p.setTime(keyLastSync, t)
	return nil
}

func (p *MemoryPrefs) LastNotification(_ context.Context) (time.Time, error) {
	return p.time(keyLastNotification), nil
}

func (p *MemoryPrefs) SetLastNotification(_ context.Context, t time.Time) error {
	p.setTime(keyLastNotification, t)
	return nil
}

// Apply writes the non-nil fields of s.
func (p *MemoryPrefs) Apply(_ context.Context, s Settings) error {
	if s.Units != nil {
		if err := validUnits(*s.Units); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Location != nil {
		p.strings[keyLocation] = *s.Location
	}
	if s.NotificationsEnabled != nil {
		p.bools[keyNotifications] = *s.NotificationsEnabled
	}
	if s.Units != nil {
		p.strings[keyUnits] = *s.Units
	}
	return nil
}

// Settings returns the effective user settings.
func (p *MemoryPrefs) Settings(ctx context.Context) (Snapshot, error) {
	loc, _ := p.Location(ctx)
	enabled, _ := p.NotificationsEnabled(ctx)
	metric, _ := p.Metric(ctx)

	units := UnitsMetric
	if !metric {
		units = UnitsImperial
	}
	return Snapshot{Location: loc, NotificationsEnabled: enabled, Units: units}, nil
}

func (p *MemoryPrefs) time(key string) time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fromMillis(p.times[key])
}

func (p *MemoryPrefs) setTime(key string, t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.times[key] = millis(t)
}
