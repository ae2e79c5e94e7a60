package histsync_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/citysun/sunshine-tracker/internal/catalog"
	"github.com/citysun/sunshine-tracker/internal/histsync"
	"github.com/citysun/sunshine-tracker/internal/provider"
	"github.com/citysun/sunshine-tracker/internal/store"
)

const epoch = "2024-01-01"

var berlin = catalog.City{Name: "Berlin", Lat: 52.5, Lon: 13.4}

type fetchCall struct {
	city       string
	start, end string
}

// fakeArchive records the requested windows and replays canned series.
type fakeArchive struct {
	calls  []fetchCall
	series []provider.DailyCloudCover
	err    error
}

func (f *fakeArchive) FetchDaily(_ context.Context, city catalog.City, startDate, endDate string) ([]provider.DailyCloudCover, error) {
	f.calls = append(f.calls, fetchCall{city: city.Name, start: startDate, end: endDate})
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

func ptr(v float64) *float64 { return &v }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := store.OpenWith(db)
	require.NoError(t, s.Migrate())
	return s
}

func newSync(st *store.Store, archive histsync.Archive) *histsync.Synchronizer {
	return histsync.New([]catalog.City{berlin}, archive, st, epoch, 0, zap.NewNop().Sugar())
}

func TestFirstPassStartsAtEpoch(t *testing.T) {
	st := newTestStore(t)
	archive := &fakeArchive{series: []provider.DailyCloudCover{
		{Date: "2024-01-01", CloudCoverMean: ptr(30)},
	}}

	newSync(st, archive).RunPass(context.Background(), "2024-01-02")

	require.Len(t, archive.calls, 1)
	assert.Equal(t, epoch, archive.calls[0].start)
	assert.Equal(t, "2024-01-02", archive.calls[0].end)
}

func TestResumesFromWatermark(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertSunshine("Berlin", "2024-03-10", 55))

	archive := &fakeArchive{}
	newSync(st, archive).RunPass(context.Background(), "2024-03-15")

	require.Len(t, archive.calls, 1)
	assert.Equal(t, "2024-03-11", archive.calls[0].start)
	assert.Equal(t, "2024-03-15", archive.calls[0].end)
}

func TestSkipsCityAlreadyCurrent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertSunshine("Berlin", "2024-03-15", 55))

	archive := &fakeArchive{}
	newSync(st, archive).RunPass(context.Background(), "2024-03-15")

	assert.Empty(t, archive.calls)
}

func TestSunnyPercentDerivation(t *testing.T) {
	st := newTestStore(t)
	archive := &fakeArchive{series: []provider.DailyCloudCover{
		{Date: "2024-01-01", CloudCoverMean: ptr(30)},
		{Date: "2024-01-02", CloudCoverMean: ptr(0)},
		{Date: "2024-01-03", CloudCoverMean: ptr(100)},
	}}

	newSync(st, archive).RunPass(context.Background(), "2024-01-03")

	points, err := st.SunshineSeries("Berlin", 365)
	require.NoError(t, err)
	require.Len(t, points, 3)
	// Newest first.
	assert.Equal(t, 0.0, points[0].SunnyPercent)
	assert.Equal(t, 100.0, points[1].SunnyPercent)
	assert.Equal(t, 70.0, points[2].SunnyPercent)
}

// A trailing null day gets no row and stays outside the watermark, so
// the next pass re-requests it.
func TestNullCloudCoverSkippedAndNotClosed(t *testing.T) {
	st := newTestStore(t)
	archive := &fakeArchive{series: []provider.DailyCloudCover{
		{Date: "2024-01-01", CloudCoverMean: ptr(40)},
		{Date: "2024-01-02", CloudCoverMean: nil},
	}}

	sync := newSync(st, archive)
	sync.RunPass(context.Background(), "2024-01-02")

	points, err := st.SunshineSeries("Berlin", 365)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2024-01-01", points[0].Date)

	last, err := st.LastSunshineDate("Berlin")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", last)

	sync.RunPass(context.Background(), "2024-01-02")
	require.Len(t, archive.calls, 2)
	assert.Equal(t, "2024-01-02", archive.calls[1].start)
}

// Re-running the same window never duplicates rows and the watermark
// never moves backwards.
func TestRepeatedPassIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	archive := &fakeArchive{series: []provider.DailyCloudCover{
		{Date: "2024-01-01", CloudCoverMean: ptr(20)},
		{Date: "2024-01-02", CloudCoverMean: ptr(25)},
	}}

	sync := newSync(st, archive)
	sync.RunPass(context.Background(), "2024-01-02")

	before, err := st.LastSunshineDate("Berlin")
	require.NoError(t, err)

	// Second pass re-fetches today only; the provider replays the same
	// window as if the worker restarted after a partial failure.
	sync.RunPass(context.Background(), "2024-01-02")

	points, err := st.SunshineSeries("Berlin", 365)
	require.NoError(t, err)
	assert.Len(t, points, 2)

	after, err := st.LastSunshineDate("Berlin")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after, before)
}

func TestFetchErrorDoesNotAdvanceWatermark(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertSunshine("Berlin", "2024-03-10", 55))

	archive := &fakeArchive{err: assert.AnError}
	newSync(st, archive).RunPass(context.Background(), "2024-03-15")

	last, err := st.LastSunshineDate("Berlin")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", last)
}

func TestCancelledContextStopsPass(t *testing.T) {
	st := newTestStore(t)
	archive := &fakeArchive{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	newSync(st, archive).RunPass(ctx, "2024-01-02")

	assert.Empty(t, archive.calls)
}
