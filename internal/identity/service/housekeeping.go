package service

import (
	"log/slog"
	"time"

	"github.com/mantenix/identity/internal/identity/ratelimit"
)

// DefaultSweepInterval is how often expired limiter windows are reclaimed.
const DefaultSweepInterval = 5 * time.Minute

// HousekeepingService periodically sweeps expired rate limiter windows. The
// limiters self-heal on access, so the sweep only bounds memory held by keys
// that never come back.
type HousekeepingService struct {
	Limiters []*ratelimit.Limiter
	Interval time.Duration
	Logger   *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// Start launches the background sweep loop. Call Stop to terminate it.
func (s *HousekeepingService) Start() {
	if s.Interval <= 0 {
		s.Interval = DefaultSweepInterval
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run()
}

// Stop terminates the sweep loop and waits for it to exit. Safe to call more
// than once.
func (s *HousekeepingService) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.stopCh = nil
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Logger.Debug("housekeeping started", "interval", s.Interval)

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			s.Logger.Debug("housekeeping stopped")
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	before := 0
	for _, l := range s.Limiters {
		before += l.Len()
	}

	for _, l := range s.Limiters {
		l.Cleanup()
	}

	after := 0
	for _, l := range s.Limiters {
		after += l.Len()
	}

	if removed := before - after; removed > 0 {
		s.Logger.Debug("rate limit sweep", "removed", removed, "remaining", after)
	}
}
