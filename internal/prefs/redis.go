package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPrefs stores preferences as fields of one Redis hash.
type RedisPrefs struct {
	client   *redis.Client
	key      string
	defaults Defaults
}

// Connect parses redisURL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisPrefs stores preferences under the hash key namespace+":prefs".
func NewRedisPrefs(client *redis.Client, namespace string, d Defaults) *RedisPrefs {
	return &RedisPrefs{
		client:   client,
		key:      namespace + ":prefs",
		defaults: d,
	}
}

func (p *RedisPrefs) get(ctx context.Context, field string) (string, bool, error) {
	v, err := p.client.HGet(ctx, p.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", field, err)
	}
	return v, true, nil
}

func (p *RedisPrefs) Location(ctx context.Context) (string, error) {
	v, ok, err := p.get(ctx, keyLocation)
	if err != nil || !ok {
		return p.defaults.Location, err
	}
	return v, nil
}

func (p *RedisPrefs) NotificationsEnabled(ctx context.Context) (bool, error) {
	v, ok, err := p.get(ctx, keyNotifications)
	if err != nil || !ok {
		return p.defaults.NotificationsEnabled, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return p.defaults.NotificationsEnabled, fmt.Errorf("bad %s value %q: %w", keyNotifications, v, err)
	}
	return b, nil
}

func (p *RedisPrefs) Metric(ctx context.Context) (bool, error) {
	v, ok, err := p.get(ctx, keyUnits)
	if err != nil {
		return p.defaults.Units != UnitsImperial, err
	}
	if !ok {
		v = p.defaults.Units
	}
	return v != UnitsImperial, nil
}

func (p *RedisPrefs) timeField(ctx context.Context, field string) (time.Time, error) {
	v, ok, err := p.get(ctx, field)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return fromMillis(0), nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad %s value %q: %w", field, v, err)
	}
	return fromMillis(ms), nil
}

func (p *RedisPrefs) setTimeField(ctx context.Context, field string, t time.Time) error {
	if err := p.client.HSet(ctx, p.key, field, millis(t)).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", field, err)
	}
	return nil
}

func (p *RedisPrefs) LastSync(ctx context.Context) (time.Time, error) {
	return p.timeField(ctx, keyLastSync)
}

func (p *RedisPrefs) SetLastSync(ctx context.Context, t time.Time) error {
	return p.setTimeField(ctx, keyLastSync, t)
}

func (p *RedisPrefs) LastNotification(ctx context.Context) (time.Time, error) {
	return p.timeField(ctx, keyLastNotification)
}

func (p *RedisPrefs) SetLastNotification(ctx context.Context, t time.Time) error {
	return p.setTimeField(ctx, keyLastNotification, t)
}

// Apply writes the non-nil fields of s in one HSET.
func (p *RedisPrefs) Apply(ctx context.Context, s Settings) error {
	values := make(map[string]interface{})
	if s.Location != nil {
		values[keyLocation] = *s.Location
	}
	if s.NotificationsEnabled != nil {
		values[keyNotifications] = strconv.FormatBool(*s.NotificationsEnabled)
	}
	if s.Units != nil {
		if err := validUnits(*s.Units); err != nil {
			return err
		}
		values[keyUnits] = *s.Units
	}
	if len(values) == 0 {
		return nil
	}
	if err := p.client.HSet(ctx, p.key, values).Err(); err != nil {
		return fmt.Errorf("redis hset settings: %w", err)
	}
	return nil
}

// Settings returns the effective user settings.
func (p *RedisPrefs) Settings(ctx context.Context) (Snapshot, error) {
	loc, err := p.Location(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	enabled, err := p.NotificationsEnabled(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	metric, err := p.Metric(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	units := UnitsMetric
	if !metric {
		units = UnitsImperial
	}
	return Snapshot{Location: loc, NotificationsEnabled: enabled, Units: units}, nil
}
