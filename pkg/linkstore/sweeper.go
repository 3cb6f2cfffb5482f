package linkstore

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/craftpanel/pluginhub/pkg/observability"
)

// DefaultPendingMaxAge is how long a pending link may wait for its callback
// before the sweeper discards it.
const DefaultPendingMaxAge = 24 * time.Hour

// Sweeper periodically deletes pending links whose callback never arrived.
type Sweeper struct {
	store  *Store
	logger *observability.Logger
	maxAge time.Duration
	cron   *cron.Cron
}

// NewSweeper creates a sweeper over the store. A non-positive maxAge falls
// back to DefaultPendingMaxAge.
func NewSweeper(store *Store, logger *observability.Logger, maxAge time.Duration) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultPendingMaxAge
	}
	return &Sweeper{
		store:  store,
		logger: logger,
		maxAge: maxAge,
		cron:   cron.New(),
	}
}

// Start schedules the hourly sweep. Call Stop to shut it down.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@hourly", s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.store.DeleteStalePending(ctx, s.maxAge)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sweep stale pending links")
		return
	}
	if deleted > 0 {
		s.logger.Infof("Swept %d stale pending Polymart links", deleted)
	}
}
