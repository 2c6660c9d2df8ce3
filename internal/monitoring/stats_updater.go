package monitoring

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/libreshelf/bookstore-be/internal/metrics"
	"github.com/libreshelf/bookstore-be/internal/services"
	"github.com/libreshelf/bookstore-be/internal/session"
)

// StatsUpdater periodically refreshes the catalog-size and active-session
// gauges from their stores.
type StatsUpdater struct {
	bookSvc   services.BookServiceProvider
	sessions  *session.Store
	collector *metrics.Collector
	cron      *cron.Cron
}

// NewStatsUpdater creates a new StatsUpdater.
func NewStatsUpdater(bookSvc services.BookServiceProvider, sessions *session.Store, collector *metrics.Collector) *StatsUpdater {
	return &StatsUpdater{
		bookSvc:   bookSvc,
		sessions:  sessions,
		collector: collector,
		cron:      cron.New(),
	}
}

// Run refreshes the gauges once immediately, then every minute.
func (su *StatsUpdater) Run() error {
	log.Info().Msg("Starting background stats updater...")
	su.refresh()

	if _, err := su.cron.AddFunc("* * * * *", su.refresh); err != nil {
		return err
	}
	su.cron.Start()
	return nil
}

// Stop halts the schedule, waiting for a running refresh to finish.
func (su *StatsUpdater) Stop() {
	log.Info().Msg("Stopping background stats updater.")
	<-su.cron.Stop().Done()
}

func (su *StatsUpdater) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if total, err := su.bookSvc.CountBooks(); err != nil {
		log.Error().Err(err).Msg("Stats updater: failed to count books")
	} else {
		su.collector.SetTotalBooks(total)
	}

	if active, err := su.sessions.Count(ctx); err != nil {
		log.Error().Err(err).Msg("Stats updater: failed to count sessions")
	} else {
		su.collector.SetActiveSessions(active)
	}
}
