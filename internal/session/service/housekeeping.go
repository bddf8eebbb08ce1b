package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the periodic work housekeeping runs. *Authority satisfies it.
type Sweeper interface {
	CleanupSessions(ctx context.Context) (int, error)
}

// CachePurger drops expired cache entries. *geoip.Resolver satisfies it.
type CachePurger interface {
	Purge() int
}

// HousekeepingService periodically removes idle sessions and expired geo
// cache entries so neither grows without bound.
type HousekeepingService struct {
	Sessions Sweeper
	GeoCache CachePurger // optional
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(sessions Sweeper, geo CachePurger, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Sessions: sessions,
		GeoCache: geo,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. It is non-blocking; call Stop to shut
// it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep. Each step is independent; a failure in
// one does not stop the other.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	s.Logger.Debug("starting housekeeping cleanup")

	removed, err := s.Sessions.CleanupSessions(ctx)
	if err != nil {
		s.Logger.Error("failed to clean up idle sessions", "error", err)
	}

	purged := 0
	if s.GeoCache != nil {
		purged = s.GeoCache.Purge()
	}

	s.Logger.Info("housekeeping cleanup completed", "sessions_removed", removed, "geo_entries_purged", purged)
}
