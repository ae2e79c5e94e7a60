// Package store owns the schema and all reads and writes against it.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Store wraps the database handle. Every operation is synchronous and
// self-contained; callers decide what to do with write errors (the
// workers log and move on, per the non-fatal write policy).
type Store struct {
	db *gorm.DB
}

// Config is the subset of connection settings Open needs.
type Config struct {
	DSN string
}

// Open connects to postgres, retrying a bounded number of times so a
// database container that is still starting up doesn't kill the worker,
// then migrates the schema. Failing all attempts is fatal to the caller.
func Open(cfg Config, log *zap.SugaredLogger) (*Store, error) {
	var db *gorm.DB
	var err error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err == nil {
			break
		}
		log.Warnw("database connection failed",
			"attempt", attempt, "max_attempts", connectAttempts, "error", err)
		if attempt < connectAttempts {
			time.Sleep(connectBackoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database after %d attempts: %w", connectAttempts, err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	log.Info("database initialized")
	return s, nil
}

// OpenWith wraps an existing gorm handle. Tests use it with an
// in-memory sqlite database.
func OpenWith(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate idempotently creates the three tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&City{}, &WeatherRecord{}, &SunshineRecord{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// ListCities returns the catalog ordered by name ascending.
func (s *Store) ListCities() ([]City, error) {
	var cities []City
	if err := s.db.Order("name asc").Find(&cities).Error; err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

// UpsertCity inserts a city, keeping the existing row (including its
// coordinates) when the name is already present.
func (s *Store) UpsertCity(name string, lat, lon float64) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&City{Name: name, Lat: lat, Lon: lon}).Error
	if err != nil {
		return fmt.Errorf("upsert city %s: %w", name, err)
	}
	return nil
}

// AppendRecord unconditionally inserts a weather snapshot.
func (s *Store) AppendRecord(rec WeatherRecord) error {
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("append weather record for %s: %w", rec.City, err)
	}
	return nil
}

// LatestRecord returns the newest snapshot for a city, or nil if the
// city has none.
func (s *Store) LatestRecord(city string) (*WeatherRecord, error) {
	var rec WeatherRecord
	err := s.db.Where("city = ?", city).Order("timestamp desc").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest weather record for %s: %w", city, err)
	}
	return &rec, nil
}

// LastSunshineDate returns the high-watermark date (MAX(date)) for a
// city, or "" if the city has no historical rows yet.
func (s *Store) LastSunshineDate(city string) (string, error) {
	var max sql.NullString
	err := s.db.Model(&SunshineRecord{}).
		Where("city = ?", city).
		Select("MAX(date)").
		Scan(&max).Error
	if err != nil {
		return "", fmt.Errorf("last sunshine date for %s: %w", city, err)
	}
	if !max.Valid {
		return "", nil
	}
	return max.String, nil
}

// InsertSunshine inserts a historical sunshine record, silently
// dropping the write when (city, date) already exists.
func (s *Store) InsertSunshine(city, date string, sunnyPercent float64) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "city"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&SunshineRecord{City: city, Date: date, SunnyPercent: sunnyPercent}).Error
	if err != nil {
		return fmt.Errorf("insert sunshine record for %s %s: %w", city, date, err)
	}
	return nil
}

// SunshineSeries returns up to limit historical records for a city,
// newest date first.
func (s *Store) SunshineSeries(city string, limit int) ([]SunshinePoint, error) {
	var points []SunshinePoint
	err := s.db.Model(&SunshineRecord{}).
		Where("city = ?", city).
		Order("date desc").
		Limit(limit).
		Select("date", "sunny_percent").
		Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("sunshine series for %s: %w", city, err)
	}
	return points, nil
}
