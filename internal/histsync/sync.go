// Package histsync implements the historical sunshine synchronizer.
//
// For each city it resumes the daily series from the last persisted
// date (the watermark), derives sunny_percent = 100 - cloud_cover_mean
// and inserts one row per date with insert-or-ignore semantics, so a
// re-run after a partial failure never produces duplicates. Today is
// always re-fetched: its data may still be incomplete and the repeated
// insert for an already-covered date is a no-op.
package histsync

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/citysun/sunshine-tracker/internal/catalog"
	"github.com/citysun/sunshine-tracker/internal/provider"
)

const dateLayout = "2006-01-02"

// Archive is the slice of the provider the synchronizer needs.
type Archive interface {
	FetchDaily(ctx context.Context, city catalog.City, startDate, endDate string) ([]provider.DailyCloudCover, error)
}

// Writer is the slice of the store the synchronizer needs.
type Writer interface {
	LastSunshineDate(city string) (string, error)
	InsertSunshine(city, date string, sunnyPercent float64) error
}

// Synchronizer keeps the historical_sunshine table current for every
// catalog city.
type Synchronizer struct {
	cities    []catalog.City
	archive   Archive
	writer    Writer
	epoch     string // first date fetched for a city with no rows yet
	cityDelay time.Duration
	log       *zap.SugaredLogger

	sched *gocron.Scheduler
}

func New(cities []catalog.City, archive Archive, writer Writer, epoch string, cityDelay time.Duration, log *zap.SugaredLogger) *Synchronizer {
	return &Synchronizer{
		cities:    cities,
		archive:   archive,
		writer:    writer,
		epoch:     epoch,
		cityDelay: cityDelay,
		log:       log,
		sched:     gocron.NewScheduler(time.Local),
	}
}

// Start schedules a pass immediately and then every interval. Passes
// use ctx so cancellation stops in-flight work.
func (s *Synchronizer) Start(ctx context.Context, interval time.Duration) error {
	_, err := s.sched.Every(interval).SingletonMode().StartImmediately().Do(func() {
		s.log.Info("starting historical data update cycle")
		s.RunPass(ctx, time.Now().Format(dateLayout))
		s.log.Info("historical cycle completed")
	})
	if err != nil {
		return err
	}
	s.sched.StartAsync()
	return nil
}

// Stop stops the scheduler; it does not interrupt a running pass.
func (s *Synchronizer) Stop() {
	s.sched.Stop()
}

// RunPass synchronizes every city up to today (server-local ISO date).
// Per-city failures are logged and the pass moves on.
func (s *Synchronizer) RunPass(ctx context.Context, today string) {
	for _, city := range s.cities {
		if ctx.Err() != nil {
			return
		}

		count, err := s.syncCity(ctx, city, today)
		if err != nil {
			s.log.Errorw("historical sync failed", "city", city.Name, "error", err)
		} else if count >= 0 {
			s.log.Infow("historical records saved", "city", city.Name, "count", count)
		}

		if !sleepCtx(ctx, s.cityDelay) {
			return
		}
	}
}

// syncCity fetches and persists the unfetched date range for one city.
// It returns -1 when the city is already current. The watermark is
// MAX(date) over inserted rows only: a trailing date the provider
// reported as null stays open and is re-requested next pass.
func (s *Synchronizer) syncCity(ctx context.Context, city catalog.City, today string) (int, error) {
	last, err := s.writer.LastSunshineDate(city.Name)
	if err != nil {
		return 0, err
	}

	start := s.epoch
	if last != "" {
		next, err := nextDay(last)
		if err != nil {
			return 0, err
		}
		start = next
	}

	// ISO dates compare correctly as strings.
	if start > today {
		s.log.Debugw("city is up to date", "city", city.Name)
		return -1, nil
	}

	s.log.Infow("updating city", "city", city.Name, "from", start, "to", today)

	series, err := s.archive.FetchDaily(ctx, city, start, today)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, day := range series {
		if day.CloudCoverMean == nil {
			continue
		}
		sunny := 100 - *day.CloudCoverMean
		if err := s.writer.InsertSunshine(city.Name, day.Date, sunny); err != nil {
			s.log.Errorw("dropped sunshine record", "city", city.Name, "date", day.Date, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

func nextDay(date string) (string, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, 1).Format(dateLayout), nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
