// Package poller implements the current-weather polling loop.
package poller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/citysun/sunshine-tracker/internal/catalog"
	"github.com/citysun/sunshine-tracker/internal/store"
)

// Fetcher is the slice of the provider the poller needs.
type Fetcher interface {
	Fetch(ctx context.Context, city catalog.City) (store.WeatherRecord, error)
}

// Writer is the slice of the store the poller needs.
type Writer interface {
	UpsertCity(name string, lat, lon float64) error
	AppendRecord(rec store.WeatherRecord) error
}

// Poller walks the city list forever, persisting one snapshot per city
// per pass.
type Poller struct {
	cities  []catalog.City
	fetcher Fetcher
	writer  Writer
	log     *zap.SugaredLogger

	// Pacing between cities, after a completed pass, and before
	// restarting a pass after a fetch failure.
	pollInterval time.Duration
	passDelay    time.Duration
	errorDelay   time.Duration
}

func New(cities []catalog.City, fetcher Fetcher, writer Writer, pollInterval, passDelay, errorDelay time.Duration, log *zap.SugaredLogger) *Poller {
	return &Poller{
		cities:       cities,
		fetcher:      fetcher,
		writer:       writer,
		log:          log,
		pollInterval: pollInterval,
		passDelay:    passDelay,
		errorDelay:   errorDelay,
	}
}

// Run seeds the cities table from the catalog, then loops until ctx is
// done. A fetch or parse failure abandons the pass and restarts it from
// the top of the city list after errorDelay; cities earlier in the list
// are therefore polled more often under repeated failure. That matches
// the long-standing behaviour of this worker and keeps per-provider
// pressure low, so it is kept rather than moving to per-city schedules.
// Write failures never abort a pass: they are logged and the next pass
// retries naturally.
func (p *Poller) Run(ctx context.Context) {
	p.seedCities()

	for {
		if err := p.runPass(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Errorw("poll pass aborted", "error", err)
			if !sleepCtx(ctx, p.errorDelay) {
				return
			}
			continue
		}
		p.log.Info("poll pass completed, waiting for next run")
		if !sleepCtx(ctx, p.passDelay) {
			return
		}
	}
}

// runPass polls every city once, sleeping pollInterval after each.
// The first fetch error aborts the pass.
func (p *Poller) runPass(ctx context.Context) error {
	for _, city := range p.cities {
		rec, err := p.fetcher.Fetch(ctx, city)
		if err != nil {
			return fmt.Errorf("fetch weather for %s: %w", city.Name, err)
		}

		if err := p.writer.AppendRecord(rec); err != nil {
			p.log.Errorw("dropped weather record", "city", city.Name, "error", err)
		} else {
			p.log.Infow("saved weather record", "city", city.Name, "timestamp", rec.Timestamp)
		}

		if !sleepCtx(ctx, p.pollInterval) {
			return ctx.Err()
		}
	}
	return nil
}

// seedCities inserts the catalog into the cities table. Existing rows
// keep their coordinates; individual failures are not fatal.
func (p *Poller) seedCities() {
	for _, c := range p.cities {
		if err := p.writer.UpsertCity(c.Name, c.Lat, c.Lon); err != nil {
			p.log.Errorw("failed to upsert city", "city", c.Name, "error", err)
		}
	}
	p.log.Infow("cities table populated", "count", len(p.cities))
}

// sleepCtx sleeps for d or until ctx is done; it reports whether the
// full duration elapsed.
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
