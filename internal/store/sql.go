package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/i474232898/forecast-sync/internal/logger"
	"github.com/i474232898/forecast-sync/internal/weather"
)

// recordRow is the persisted shape of a weather.WeatherRecord.
type recordRow struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Date        int64   `gorm:"uniqueIndex;not null"`
	WeatherID   int     `gorm:"column:weather_id;not null"`
	Description string  `gorm:"column:description;not null"`
	Min         float64 `gorm:"column:min"`
	Max         float64 `gorm:"column:max"`
	Humidity    float64 `gorm:"column:humidity"`
	Pressure    float64 `gorm:"column:pressure"`
	Wind        float64 `gorm:"column:wind"`
	Degrees     float64 `gorm:"column:degrees"`
}

func (recordRow) TableName() string { return "weather" }

var upsertColumns = []string{"weather_id", "description", "min", "max", "humidity", "pressure", "wind", "degrees"}

func toRow(r weather.WeatherRecord) recordRow {
	return recordRow{
		Date:        r.Date,
		WeatherID:   r.ConditionCode,
		Description: r.Description,
		Min:         r.MinTemp,
		Max:         r.MaxTemp,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		Wind:        r.WindSpeed,
		Degrees:     r.WindDirection,
	}
}

func (row recordRow) toRecord() weather.WeatherRecord {
	return weather.WeatherRecord{
		ID:            row.ID,
		Date:          row.Date,
		ConditionCode: row.WeatherID,
		Description:   row.Description,
		MinTemp:       row.Min,
		MaxTemp:       row.Max,
		Humidity:      row.Humidity,
		Pressure:      row.Pressure,
		WindSpeed:     row.Wind,
		WindDirection: row.Degrees,
	}
}

// SQLStore is a GORM-backed weather.Store. Writes go through a single-writer
// lock held across the transaction and the subscriber publish.
type SQLStore struct {
	db  *gorm.DB
	log logger.Logger

	writeMu sync.Mutex
	broker  *broker
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// OpenSQLite opens (or creates) a SQLite database at dsn.
func OpenSQLite(dsn string, log logger.Logger) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting per connection.
	sqlDB.SetMaxOpenConns(1)

	return NewSQLStore(db, log)
}

// OpenPostgres connects to PostgreSQL.
func OpenPostgres(dsn string, log logger.Logger) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewSQLStore(db, log)
}

// NewSQLStore wraps an open GORM handle and migrates the schema.
func NewSQLStore(db *gorm.DB, log logger.Logger) (*SQLStore, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate weather table: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &SQLStore{
		db:     db,
		log:    log.WithField("component", "sql_store"),
		broker: newBroker(),
	}, nil
}

// BulkUpsert inserts records, replacing rows with the same date.
func (s *SQLStore) BulkUpsert(ctx context.Context, records []weather.WeatherRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.write(ctx, "bulk upsert", func(tx *gorm.DB) ([]int64, error) {
		return upsertTx(tx, records)
	})
}

// DeleteBefore removes rows with date < cutoff.
func (s *SQLStore) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	var deleted int64
	err := s.write(ctx, "delete before", func(tx *gorm.DB) ([]int64, error) {
		touched, err := deleteBeforeTx(tx, cutoff)
		deleted = int64(len(touched))
		return touched, err
	})
	return deleted, err
}

// ReplaceFrom deletes rows older than records[0].Date and upserts records in
// one transaction.
func (s *SQLStore) ReplaceFrom(ctx context.Context, records []weather.WeatherRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.write(ctx, "replace", func(tx *gorm.DB) ([]int64, error) {
		deleted, err := deleteBeforeTx(tx, records[0].Date)
		if err != nil {
			return nil, err
		}
		upserted, err := upsertTx(tx, records)
		if err != nil {
			return nil, err
		}
		return append(deleted, upserted...), nil
	})
}

func (s *SQLStore) write(ctx context.Context, op string, fn func(tx *gorm.DB) ([]int64, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var touched []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		touched, err = fn(tx)
		return err
	})
	if err != nil {
		return &weather.StoreError{Op: op, Err: err}
	}

	if err := s.broker.publish(touched, func(from int64) ([]weather.WeatherRecord, error) {
		return s.getFrom(context.Background(), from)
	}); err != nil {
		s.log.Warnf("publishing %s snapshot failed: %v", op, err)
	}
	return nil
}

func upsertTx(tx *gorm.DB, records []weather.WeatherRecord) ([]int64, error) {
	rows := make([]recordRow, 0, len(records))
	touched := make([]int64, 0, len(records))
	for _, r := range records {
		rows = append(rows, toRow(r))
		touched = append(touched, r.Date)
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&rows).Error
	if err != nil {
		return nil, err
	}
	return touched, nil
}

func deleteBeforeTx(tx *gorm.DB, cutoff int64) ([]int64, error) {
	var dates []int64
	if err := tx.Model(&recordRow{}).Where("date < ?", cutoff).Pluck("date", &dates).Error; err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}
	if err := tx.Where("date < ?", cutoff).Delete(&recordRow{}).Error; err != nil {
		return nil, err
	}
	return dates, nil
}

// GetByDate returns the record for a normalized date.
func (s *SQLStore) GetByDate(ctx context.Context, date int64) (weather.WeatherRecord, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Where("date = ?", date).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return weather.WeatherRecord{}, ErrNotFound
		}
		return weather.WeatherRecord{}, &weather.StoreError{Op: "get by date", Err: err}
	}
	return row.toRecord(), nil
}

// GetByID returns the record with the given id.
func (s *SQLStore) GetByID(ctx context.Context, id int64) (weather.WeatherRecord, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return weather.WeatherRecord{}, ErrNotFound
		}
		return weather.WeatherRecord{}, &weather.StoreError{Op: "get by id", Err: err}
	}
	return row.toRecord(), nil
}

// GetFrom returns all records on or after date, ascending.
func (s *SQLStore) GetFrom(ctx context.Context, date int64) ([]weather.WeatherRecord, error) {
	out, err := s.getFrom(ctx, date)
	if err != nil {
		return nil, &weather.StoreError{Op: "get from", Err: err}
	}
	return out, nil
}

func (s *SQLStore) getFrom(ctx context.Context, date int64) ([]weather.WeatherRecord, error) {
	var rows []recordRow
	if err := s.db.WithContext(ctx).Where("date >= ?", date).Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]weather.WeatherRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

// Subscribe watches GetFrom(from).
func (s *SQLStore) Subscribe(from int64) (weather.Subscription, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, err := s.getFrom(context.Background(), from)
	if err != nil {
		return nil, &weather.StoreError{Op: "subscribe", Err: err}
	}
	return s.broker.add(from, snap), nil
}

// Count returns the number of stored records.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&recordRow{}).Count(&n).Error; err != nil {
		return 0, &weather.StoreError{Op: "count", Err: err}
	}
	return int(n), nil
}

// CountFrom returns the number of records on or after date.
func (s *SQLStore) CountFrom(ctx context.Context, date int64) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&recordRow{}).Where("date >= ?", date).Count(&n).Error; err != nil {
		return 0, &weather.StoreError{Op: "count from", Err: err}
	}
	return int(n), nil
}

// Close ends all subscriptions and closes the connection pool.
func (s *SQLStore) Close() error {
	s.broker.closeAll()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
