package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/citysun/sunshine-tracker/internal/store"
)

// newTestStore runs the real store against an in-memory sqlite database.
// The raw handle is returned too, for row-count assertions.
func newTestStore(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection so every query sees the same in-memory DB.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := store.OpenWith(db)
	require.NoError(t, s.Migrate())
	return s, db
}

func TestUpsertCityKeepsFirstCoordinates(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.UpsertCity("Berlin", 52.5, 13.4))
	require.NoError(t, s.UpsertCity("Berlin", 0, 0))

	cities, err := s.ListCities()
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, "Berlin", cities[0].Name)
	assert.Equal(t, 52.5, cities[0].Lat)
	assert.Equal(t, 13.4, cities[0].Lon)
}

func TestListCitiesOrderedByName(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.UpsertCity("Munich", 48.1, 11.6))
	require.NoError(t, s.UpsertCity("Berlin", 52.5, 13.4))
	require.NoError(t, s.UpsertCity("Cologne", 50.9, 6.9))

	cities, err := s.ListCities()
	require.NoError(t, err)
	require.Len(t, cities, 3)
	assert.Equal(t, "Berlin", cities[0].Name)
	assert.Equal(t, "Cologne", cities[1].Name)
	assert.Equal(t, "Munich", cities[2].Name)
}

func TestInsertSunshineIdempotent(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.InsertSunshine("Berlin", "2024-03-10", 70))
	require.NoError(t, s.InsertSunshine("Berlin", "2024-03-10", 10))

	points, err := s.SunshineSeries("Berlin", 365)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2024-03-10", points[0].Date)
	assert.Equal(t, 70.0, points[0].SunnyPercent)
}

func TestLastSunshineDate(t *testing.T) {
	s, _ := newTestStore(t)

	last, err := s.LastSunshineDate("Berlin")
	require.NoError(t, err)
	assert.Empty(t, last)

	require.NoError(t, s.InsertSunshine("Berlin", "2024-03-09", 50))
	require.NoError(t, s.InsertSunshine("Berlin", "2024-03-10", 60))
	require.NoError(t, s.InsertSunshine("Hamburg", "2024-04-01", 40))

	last, err = s.LastSunshineDate("Berlin")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", last)
}

func TestSunshineSeriesOrderAndLimit(t *testing.T) {
	s, _ := newTestStore(t)

	dates := []string{"2024-01-01", "2024-01-03", "2024-01-02", "2024-01-05", "2024-01-04"}
	for _, d := range dates {
		require.NoError(t, s.InsertSunshine("Berlin", d, 50))
	}

	points, err := s.SunshineSeries("Berlin", 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "2024-01-05", points[0].Date)
	assert.Equal(t, "2024-01-04", points[1].Date)
	assert.Equal(t, "2024-01-03", points[2].Date)
}

func TestLatestRecord(t *testing.T) {
	s, _ := newTestStore(t)

	rec, err := s.LatestRecord("Berlin")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, s.AppendRecord(store.WeatherRecord{City: "Berlin", Temp: 10, Timestamp: 100}))
	require.NoError(t, s.AppendRecord(store.WeatherRecord{City: "Berlin", Temp: 12, Timestamp: 200}))
	require.NoError(t, s.AppendRecord(store.WeatherRecord{City: "Hamburg", Temp: 8, Timestamp: 300}))

	rec, err = s.LatestRecord("Berlin")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(200), rec.Timestamp)
	assert.Equal(t, 12.0, rec.Temp)
}

// The snapshot table is append-only with no uniqueness constraint: a
// restarted poller may legitimately write the same observation twice.
func TestAppendRecordAllowsDuplicates(t *testing.T) {
	s, db := newTestStore(t)

	rec := store.WeatherRecord{City: "Berlin", Temp: 10, Timestamp: 100}
	require.NoError(t, s.AppendRecord(rec))
	require.NoError(t, s.AppendRecord(rec))

	var count int64
	require.NoError(t, db.Model(&store.WeatherRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
