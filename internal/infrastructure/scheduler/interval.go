package scheduler

import (
	"context"
	"time"

	"NewsVerifier/internal/ports"
)

// IntervalScheduler drives a recurring job on a fixed period: the hourly
// full crawl and the 15-minute recheck sweep both run on one of these.
type IntervalScheduler struct {
	interval time.Duration
	// immediate fires the job once at start before the first tick.
	immediate bool
	stop      chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler with the given period.
func NewIntervalScheduler(interval time.Duration, immediate bool) *IntervalScheduler {
	return &IntervalScheduler{interval: interval, immediate: immediate}
}

// Start begins ticking the job in a background goroutine.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		if s.immediate {
			job(time.Now())
		}
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}
